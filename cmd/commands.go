package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/vadiminshakov/finbook/config"
	"github.com/vadiminshakov/finbook/internal/clients"
	"github.com/vadiminshakov/finbook/internal/services"
	"github.com/vadiminshakov/finbook/internal/services/accounts"
	"github.com/vadiminshakov/finbook/internal/services/prices"
	"github.com/vadiminshakov/finbook/internal/services/trend"
	"github.com/vadiminshakov/finbook/internal/setup"
	"github.com/vadiminshakov/finbook/internal/storage/notion"
	"github.com/vadiminshakov/finbook/internal/storage/runjournal"
	"github.com/vadiminshakov/finbook/internal/web"
)

type globals struct {
	configPath string
	debug      bool
}

func (g *globals) logger() *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if g.debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (g *globals) load(validate func(config.Config) error) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newStore(cfg config.Config) *notion.Store {
	return notion.NewStore(clients.NewNotionClient(cfg.NotionToken), notion.Databases{
		Wallet:          cfg.Databases.Wallet,
		Trade:           cfg.Databases.Trade,
		Account:         cfg.Databases.Account,
		Currency:        cfg.Databases.Currency,
		CurrencyHistory: cfg.Databases.CurrencyHistory,
		Trend:           cfg.Databases.Trend,
	}, cfg.NotionRPS)
}

// runJob executes job, recording it in the run journal when the journal can be opened.
func runJob(ctx context.Context, g *globals, cfg config.Config, job services.Job) subcommands.ExitStatus {
	logger := g.logger()
	defer logger.Sync()

	var err error
	journal, jerr := runjournal.NewWALStore(cfg.JournalDir)
	if jerr != nil {
		logger.Warn("Run journal unavailable", zap.String("dir", cfg.JournalDir), zap.Error(jerr))
		err = services.Execute(ctx, job, logger, nil)
	} else {
		defer journal.Close()
		err = services.Execute(ctx, job, logger, journal)
	}

	if err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type accountsCmd struct{ g *globals }

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "recompute account balances from transfers and trades" }
func (*accountsCmd) Usage() string {
	return `finbook accounts

  Reads every wallet transfer and trade, recomputes each account balance from
  scratch and overwrites the account amount and its USD and CNY values.
`
}
func (*accountsCmd) SetFlags(*flag.FlagSet) {}

func (c *accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.g.load(config.Config.ValidateAccounts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	store := newStore(cfg)
	return runJob(ctx, c.g, cfg, accounts.NewUpdater(store, store, cfg.WriteConcurrency))
}

type pricesCmd struct{ g *globals }

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "refresh currency prices from CoinGecko" }
func (*pricesCmd) Usage() string {
	return `finbook prices

  Fetches the USD and CNY price of every currency that has a coin id, updates
  the currency record and appends a dated row to the price history database.
`
}
func (*pricesCmd) SetFlags(*flag.FlagSet) {}

func (c *pricesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.g.load(config.Config.ValidatePrices)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	feed := clients.NewCoinGeckoClient(cfg.Feed.BaseURL, cfg.Feed.APIKey, cfg.Feed.Timeout, cfg.Feed.MaxRetries, c.g.logger())
	return runJob(ctx, c.g, cfg, prices.NewRefresher(newStore(cfg), feed, cfg.PriceConcurrency))
}

type trendCmd struct{ g *globals }

func (*trendCmd) Name() string     { return "trend" }
func (*trendCmd) Synopsis() string { return "append portfolio totals to the finance trend database" }
func (*trendCmd) Usage() string {
	return `finbook trend

  Totals the stored account values and writes one row with the USD and CNY
  totals and the amount held per currency.
`
}
func (*trendCmd) SetFlags(*flag.FlagSet) {}

func (c *trendCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.g.load(config.Config.ValidateTrend)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	return runJob(ctx, c.g, cfg, trend.NewRecorder(newStore(cfg)))
}

type serveCmd struct {
	g    *globals
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the Slack webhook that triggers bookkeeping" }
func (*serveCmd) Usage() string {
	return `finbook serve [-addr :8080]

  Listens for Slack Events API callbacks on /slack/events and dispatches the
  GitHub workflow when the configured bot posts the trigger phrase. Finished
  runs are streamed on /runs/stream.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address, overrides webhook_addr")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := c.g.load(config.Config.ValidateWebhook)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if c.addr != "" {
		cfg.Webhook.Addr = c.addr
	}

	logger := c.g.logger()
	defer logger.Sync()

	if cfg.Webhook.SigningSecret == "" {
		logger.Warn("SLACK_SIGNING_SECRET is not set, chat events are not verified")
	}

	dispatcher := clients.NewWorkflowDispatcher(cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.WorkflowID, cfg.GitHub.Ref)
	rule := web.TriggerRule{
		ChannelID: cfg.Webhook.ChannelID,
		BotName:   cfg.Webhook.BotName,
		Phrase:    cfg.Webhook.TriggerPhrase,
	}

	var server *web.Server
	journal, jerr := runjournal.NewWALStore(cfg.JournalDir)
	if jerr != nil {
		logger.Warn("Run journal unavailable, run stream disabled", zap.Error(jerr))
		server = web.NewServer(cfg.Webhook.Addr, cfg.Webhook.SigningSecret, rule, dispatcher, nil, logger)
	} else {
		defer journal.Close()
		server = web.NewServer(cfg.Webhook.Addr, cfg.Webhook.SigningSecret, rule, dispatcher, journal, logger)
	}

	if err := server.Start(ctx); err != nil {
		logger.Error("Webhook server failed", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type setupCmd struct {
	out string
}

func (*setupCmd) Name() string     { return "setup" }
func (*setupCmd) Synopsis() string { return "interactive wizard writing the YAML config" }
func (*setupCmd) Usage() string {
	return `finbook setup [-o finbook.yaml]
`
}

func (c *setupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "o", "finbook.yaml", "file to write the config to")
}

func (c *setupCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := setup.RunTUI(c.out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
