package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

const (
	eventURLVerification = "url_verification"
	eventCallback        = "event_callback"
	eventMessage         = "message"
	channelTypeIM        = "im"
)

// envelope is the outer Events API payload. Only the fields the trigger rule
// looks at are decoded.
type envelope struct {
	Type      string        `json:"type"`
	Challenge string        `json:"challenge"`
	Event     *messageEvent `json:"event"`
}

type messageEvent struct {
	Type        string      `json:"type"`
	Channel     string      `json:"channel"`
	ChannelType string      `json:"channel_type"`
	Text        string      `json:"text"`
	BotProfile  *botProfile `json:"bot_profile"`
}

type botProfile struct {
	Name string `json:"name"`
}

// Matches reports whether ev should trigger the workflow.
func (t TriggerRule) Matches(ev *messageEvent) bool {
	if ev == nil || ev.Type != eventMessage {
		return false
	}
	inChannel := ev.ChannelType == channelTypeIM || (t.ChannelID != "" && ev.Channel == t.ChannelID)
	if !inChannel {
		return false
	}
	if ev.BotProfile == nil || ev.BotProfile.Name != t.BotName {
		return false
	}
	return strings.Contains(ev.Text, t.Phrase)
}

func (s *Server) handleSlackEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if s.SigningSecret != "" {
		if err := s.verify(r.Header, body); err != nil {
			s.logger.Warn("Rejected chat event with bad signature", zap.Error(err))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch env.Type {
	case eventURLVerification:
		writeJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
	case eventCallback:
		if !s.Rule.Matches(env.Event) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "No action triggered"})
			return
		}
		if err := s.Dispatcher.Dispatch(r.Context()); err != nil {
			s.logger.Error("Failed to trigger workflow", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Info("Workflow triggered from chat", zap.String("channel", env.Event.Channel))
		writeJSON(w, http.StatusOK, map[string]string{"message": "GitHub Action triggered"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, s.SigningSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}
