package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultWriteConcurrency = 5
	defaultPriceConcurrency = 2
	defaultNotionRPS        = 3.0
	defaultFeedURL          = "https://api.coingecko.com/api/v3"
	defaultFeedTimeout      = 30 * time.Second
	defaultFeedMaxRetries   = 2
	defaultWebhookAddr      = ":8080"
	defaultBotName          = "Notion"
	defaultTriggerPhrase    = "Update Account"
	defaultWorkflowRef      = "main"
	defaultJournalDir       = "./wal/runs"
)

// Databases holds the Notion database ids the jobs read and write.
type Databases struct {
	Wallet          string
	Trade           string
	Account         string
	Currency        string
	CurrencyHistory string
	Trend           string
}

// Feed configures the price feed client.
type Feed struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Webhook configures the chat event endpoint.
type Webhook struct {
	Addr          string
	SigningSecret string
	ChannelID     string
	BotName       string
	TriggerPhrase string
}

// GitHub identifies the workflow triggered by the webhook.
type GitHub struct {
	Token      string
	Owner      string
	Repo       string
	WorkflowID int64
	Ref        string
}

type Config struct {
	NotionToken      string
	Databases        Databases
	WriteConcurrency int
	PriceConcurrency int
	NotionRPS        float64
	Feed             Feed
	Webhook          Webhook
	GitHub           GitHub
	JournalDir       string
}

// ConfigTmp is the on-disk YAML shape. Numeric knobs are kept as strings so
// that an omitted value can be told apart from zero.
type ConfigTmp struct {
	NotionToken         string        `yaml:"notion_token,omitempty"`
	WalletDatabase      string        `yaml:"wallet_database"`
	TradeDatabase       string        `yaml:"trade_database"`
	AccountDatabase     string        `yaml:"account_database"`
	CurrencyDatabase    string        `yaml:"currency_database"`
	HistoryDatabase     string        `yaml:"currency_history_database"`
	TrendDatabase       string        `yaml:"trend_database"`
	WriteConcurrencyStr string        `yaml:"write_concurrency,omitempty"`
	PriceConcurrencyStr string        `yaml:"price_concurrency,omitempty"`
	NotionRPSStr        string        `yaml:"notion_requests_per_second,omitempty"`
	FeedURL             string        `yaml:"feed_url,omitempty"`
	FeedAPIKey          string        `yaml:"feed_api_key,omitempty"`
	FeedTimeout         time.Duration `yaml:"feed_timeout,omitempty"`
	FeedMaxRetriesStr   string        `yaml:"feed_max_retries,omitempty"`
	WebhookAddr         string        `yaml:"webhook_addr,omitempty"`
	SlackChannelID      string        `yaml:"slack_channel_id,omitempty"`
	SlackBotName        string        `yaml:"slack_bot_name,omitempty"`
	TriggerPhrase       string        `yaml:"trigger_phrase,omitempty"`
	GitHubOwner         string        `yaml:"github_owner,omitempty"`
	GitHubRepo          string        `yaml:"github_repo,omitempty"`
	GitHubWorkflowIDStr string        `yaml:"github_workflow_id,omitempty"`
	GitHubRef           string        `yaml:"github_ref,omitempty"`
	JournalDir          string        `yaml:"journal_dir,omitempty"`
}

// Load reads the optional YAML file at path, then applies environment
// overrides. A .env file in the working directory is loaded first if present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	var tmp ConfigTmp
	if path != "" {
		f, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(f, &tmp); err != nil {
			return Config{}, errors.Wrap(err, "decode yaml config")
		}
	}

	applyEnv(&tmp)

	return fromTmp(tmp)
}

// Save writes the raw config as YAML, used by the setup wizard.
func Save(path string, tmp ConfigTmp) error {
	out, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "encode yaml config")
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

func applyEnv(tmp *ConfigTmp) {
	override(&tmp.NotionToken, "NOTION_TOKEN")
	override(&tmp.WalletDatabase, "WALLET_DATABASE_ID")
	override(&tmp.TradeDatabase, "TRADE_DATABASE_ID")
	override(&tmp.AccountDatabase, "ACCOUNT_DATABASE_ID")
	override(&tmp.CurrencyDatabase, "CURRENT_DATABASE_ID")
	override(&tmp.CurrencyDatabase, "CURRENCY_CURRENT_DATABASE_ID")
	override(&tmp.HistoryDatabase, "HISTORY_DATABASE_ID")
	override(&tmp.TrendDatabase, "FINANCE_DATABASE_ID")
	override(&tmp.FeedAPIKey, "COINGECKO_API_KEY")
	override(&tmp.SlackChannelID, "SLACK_CHANNEL_ID")
	override(&tmp.GitHubOwner, "GITHUB_OWNER")
	override(&tmp.GitHubRepo, "GITHUB_REPO")
	override(&tmp.GitHubWorkflowIDStr, "GITHUB_WORKFLOW_ID")
}

func override(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func fromTmp(c ConfigTmp) (Config, error) {
	conf := Config{
		NotionToken: c.NotionToken,
		Databases: Databases{
			Wallet:          c.WalletDatabase,
			Trade:           c.TradeDatabase,
			Account:         c.AccountDatabase,
			Currency:        c.CurrencyDatabase,
			CurrencyHistory: c.HistoryDatabase,
			Trend:           c.TrendDatabase,
		},
		Feed: Feed{
			BaseURL: orDefault(c.FeedURL, defaultFeedURL),
			APIKey:  c.FeedAPIKey,
			Timeout: c.FeedTimeout,
		},
		Webhook: Webhook{
			Addr: orDefault(c.WebhookAddr, defaultWebhookAddr),
			// secrets are never read from the YAML file
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
			ChannelID:     c.SlackChannelID,
			BotName:       orDefault(c.SlackBotName, defaultBotName),
			TriggerPhrase: orDefault(c.TriggerPhrase, defaultTriggerPhrase),
		},
		GitHub: GitHub{
			Token: os.Getenv("GITHUB_ACCESS_TOKEN"),
			Owner: c.GitHubOwner,
			Repo:  c.GitHubRepo,
			Ref:   orDefault(c.GitHubRef, defaultWorkflowRef),
		},
		JournalDir: orDefault(c.JournalDir, defaultJournalDir),
	}
	if conf.Feed.Timeout <= 0 {
		conf.Feed.Timeout = defaultFeedTimeout
	}

	var err error
	if conf.WriteConcurrency, err = parsePositiveInt(c.WriteConcurrencyStr, defaultWriteConcurrency); err != nil {
		return Config{}, fmt.Errorf("incorrect 'write_concurrency' param in yaml config (must be a positive integer), error: %w", err)
	}
	if conf.PriceConcurrency, err = parsePositiveInt(c.PriceConcurrencyStr, defaultPriceConcurrency); err != nil {
		return Config{}, fmt.Errorf("incorrect 'price_concurrency' param in yaml config (must be a positive integer), error: %w", err)
	}

	if c.FeedMaxRetriesStr == "" {
		conf.Feed.MaxRetries = defaultFeedMaxRetries
	} else {
		retries, err := strconv.Atoi(c.FeedMaxRetriesStr)
		if err != nil || retries < 0 {
			return Config{}, fmt.Errorf("incorrect 'feed_max_retries' param in yaml config (must be a non-negative integer): %q", c.FeedMaxRetriesStr)
		}
		conf.Feed.MaxRetries = retries
	}

	if c.NotionRPSStr == "" {
		conf.NotionRPS = defaultNotionRPS
	} else {
		rps, err := strconv.ParseFloat(c.NotionRPSStr, 64)
		if err != nil || rps <= 0 {
			return Config{}, fmt.Errorf("incorrect 'notion_requests_per_second' param in yaml config (must be a positive number): %q", c.NotionRPSStr)
		}
		conf.NotionRPS = rps
	}

	if c.GitHubWorkflowIDStr != "" {
		id, err := strconv.ParseInt(c.GitHubWorkflowIDStr, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'github_workflow_id' param in yaml config (must be an integer), error: %w", err)
		}
		conf.GitHub.WorkflowID = id
	}

	return conf, nil
}

func parsePositiveInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 1 {
		return 0, fmt.Errorf("got %d", v)
	}
	return v, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
