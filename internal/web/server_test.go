package web

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/finbook/internal/domain"
)

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeRuns struct {
	records []domain.RunRecordEntry
}

func (f *fakeRuns) RecordsAfter(index uint64) ([]domain.RunRecordEntry, error) {
	var out []domain.RunRecordEntry
	for _, r := range f.records {
		if r.Index > index {
			out = append(out, r)
		}
	}
	return out, nil
}

var defaultRule = TriggerRule{ChannelID: "C123", BotName: "Notion", Phrase: "Update Account"}

const triggerEvent = `{"type":"event_callback","event":{"type":"message","channel":"D1","channel_type":"im","text":"please Update Account now","bot_profile":{"name":"Notion"}}}`

func post(t *testing.T, s *Server, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSlackEvents_URLVerification(t *testing.T) {
	s := NewServer(":0", "", defaultRule, &fakeDispatcher{}, nil, nil)

	rec := post(t, s, `{"type":"url_verification","challenge":"abc123"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", decodeBody(t, rec)["challenge"])
}

func TestSlackEvents_Trigger(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewServer(":0", "", defaultRule, d, nil, nil)

	rec := post(t, s, triggerEvent, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GitHub Action triggered", decodeBody(t, rec)["message"])
	assert.Equal(t, 1, d.calls)
}

func TestSlackEvents_DispatchFailure(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("GitHub API responded with status 401")}
	s := NewServer(":0", "", defaultRule, d, nil, nil)

	rec := post(t, s, triggerEvent, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "401")
}

func TestSlackEvents_NoAction(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong bot", `{"type":"event_callback","event":{"type":"message","channel_type":"im","text":"Update Account","bot_profile":{"name":"Other"}}}`},
		{"no bot profile", `{"type":"event_callback","event":{"type":"message","channel_type":"im","text":"Update Account"}}`},
		{"missing phrase", `{"type":"event_callback","event":{"type":"message","channel_type":"im","text":"hello","bot_profile":{"name":"Notion"}}}`},
		{"other channel", `{"type":"event_callback","event":{"type":"message","channel":"C999","channel_type":"channel","text":"Update Account","bot_profile":{"name":"Notion"}}}`},
		{"not a message", `{"type":"event_callback","event":{"type":"reaction_added","channel_type":"im","text":"Update Account","bot_profile":{"name":"Notion"}}}`},
		{"no event", `{"type":"event_callback"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			s := NewServer(":0", "", defaultRule, d, nil, nil)

			rec := post(t, s, tt.body, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "No action triggered", decodeBody(t, rec)["message"])
			assert.Zero(t, d.calls)
		})
	}
}

func TestSlackEvents_ConfiguredChannel(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewServer(":0", "", defaultRule, d, nil, nil)

	body := `{"type":"event_callback","event":{"type":"message","channel":"C123","channel_type":"channel","text":"Update Account","bot_profile":{"name":"Notion"}}}`
	rec := post(t, s, body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, d.calls)
}

func TestSlackEvents_NotFound(t *testing.T) {
	s := NewServer(":0", "", defaultRule, &fakeDispatcher{}, nil, nil)

	rec := post(t, s, `{"type":"app_rate_limited"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(t, s, `not json`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/slack/events", nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, req)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func sign(secret, ts, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + ts + ":" + body))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestSlackEvents_Signature(t *testing.T) {
	const secret = "s3cr3t"
	body := `{"type":"url_verification","challenge":"xyz"}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	s := NewServer(":0", secret, defaultRule, &fakeDispatcher{}, nil, nil)

	t.Run("valid", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-Slack-Request-Timestamp", ts)
		h.Set("X-Slack-Signature", sign(secret, ts, body))

		rec := post(t, s, body, h)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "xyz", decodeBody(t, rec)["challenge"])
	})

	t.Run("wrong secret", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-Slack-Request-Timestamp", ts)
		h.Set("X-Slack-Signature", sign("other", ts, body))

		rec := post(t, s, body, h)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing headers", func(t *testing.T) {
		rec := post(t, s, body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	s := NewServer(":0", "", defaultRule, &fakeDispatcher{}, nil, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestRunStream_NoJournal(t *testing.T) {
	s := NewServer(":0", "", defaultRule, &fakeDispatcher{}, nil, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunStream_SendsExistingRecords(t *testing.T) {
	runs := &fakeRuns{records: []domain.RunRecordEntry{
		{Index: 1, Record: domain.RunRecord{ID: "r1", Kind: domain.RunAccounts, Updated: 3}},
		{Index: 2, Record: domain.RunRecord{ID: "r2", Kind: domain.RunPrices, Failed: 1, Error: "boom"}},
	}}
	s := NewServer(":0", "", defaultRule, &fakeDispatcher{}, runs, nil)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/runs/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var payloads []domain.RunRecord
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() && len(payloads) < 2 {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var rec domain.RunRecord
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &rec))
		payloads = append(payloads, rec)
	}

	require.Len(t, payloads, 2)
	assert.Equal(t, "r1", payloads[0].ID)
	assert.Equal(t, 3, payloads[0].Updated)
	assert.Equal(t, domain.RunPrices, payloads[1].Kind)
	assert.Equal(t, "boom", payloads[1].Error)
}

func TestServer_StartStopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", "", defaultRule, &fakeDispatcher{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StartReturnsWhenListenFails(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	s := NewServer(busy.Addr().String(), "", defaultRule, &fakeDispatcher{}, nil, nil)

	// ctx is never cancelled, Start must still return
	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after listen failure")
	}
}
