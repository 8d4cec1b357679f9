package config

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrIncomplete is returned when a job is missing required settings.
var ErrIncomplete = errors.New("incomplete configuration")

// ValidateAccounts checks the settings needed by the account reconciliation job.
func (c Config) ValidateAccounts() error {
	return requireFields(map[string]string{
		"NOTION_TOKEN":                 c.NotionToken,
		"WALLET_DATABASE_ID":           c.Databases.Wallet,
		"TRADE_DATABASE_ID":            c.Databases.Trade,
		"ACCOUNT_DATABASE_ID":          c.Databases.Account,
		"CURRENCY_CURRENT_DATABASE_ID": c.Databases.Currency,
	})
}

// ValidatePrices checks the settings needed by the price refresh job.
func (c Config) ValidatePrices() error {
	return requireFields(map[string]string{
		"NOTION_TOKEN":                 c.NotionToken,
		"CURRENCY_CURRENT_DATABASE_ID": c.Databases.Currency,
		"HISTORY_DATABASE_ID":          c.Databases.CurrencyHistory,
	})
}

// ValidateTrend checks the settings needed by the trend job.
func (c Config) ValidateTrend() error {
	return requireFields(map[string]string{
		"NOTION_TOKEN":                 c.NotionToken,
		"ACCOUNT_DATABASE_ID":          c.Databases.Account,
		"CURRENCY_CURRENT_DATABASE_ID": c.Databases.Currency,
		"FINANCE_DATABASE_ID":          c.Databases.Trend,
	})
}

// ValidateWebhook checks the settings needed by the webhook server.
func (c Config) ValidateWebhook() error {
	if err := requireFields(map[string]string{
		"GITHUB_ACCESS_TOKEN": c.GitHub.Token,
		"GITHUB_OWNER":        c.GitHub.Owner,
		"GITHUB_REPO":         c.GitHub.Repo,
	}); err != nil {
		return err
	}
	if c.GitHub.WorkflowID == 0 {
		return errors.Wrap(ErrIncomplete, "missing GITHUB_WORKFLOW_ID")
	}
	return nil
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errors.Wrapf(ErrIncomplete, "missing %s", strings.Join(missing, ", "))
}
