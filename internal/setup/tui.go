// Package setup is the interactive wizard that writes the finbook YAML config.
package setup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/finbook/config"
)

const title = "FINBOOK CONFIG WIZARD"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers collected by the wizard before they become a config file.
type answers struct {
	Wallet, Trade, Account, Currency, History, Trend string

	WriteConcurrency string
	PriceConcurrency string

	EnableWebhook bool
	ChannelID     string
	BotName       string
	TriggerPhrase string
	GitHubOwner   string
	GitHubRepo    string
	WorkflowID    string
	GitHubRef     string
}

func defaultAnswers() answers {
	return answers{
		WriteConcurrency: "5",
		PriceConcurrency: "2",
		BotName:          "Notion",
		TriggerPhrase:    "Update Account",
		GitHubRef:        "main",
	}
}

func (a answers) toConfig() config.ConfigTmp {
	tmp := config.ConfigTmp{
		WalletDatabase:      strings.TrimSpace(a.Wallet),
		TradeDatabase:       strings.TrimSpace(a.Trade),
		AccountDatabase:     strings.TrimSpace(a.Account),
		CurrencyDatabase:    strings.TrimSpace(a.Currency),
		HistoryDatabase:     strings.TrimSpace(a.History),
		TrendDatabase:       strings.TrimSpace(a.Trend),
		WriteConcurrencyStr: a.WriteConcurrency,
		PriceConcurrencyStr: a.PriceConcurrency,
	}
	if a.EnableWebhook {
		tmp.SlackChannelID = a.ChannelID
		tmp.SlackBotName = a.BotName
		tmp.TriggerPhrase = a.TriggerPhrase
		tmp.GitHubOwner = a.GitHubOwner
		tmp.GitHubRepo = a.GitHubRepo
		tmp.GitHubWorkflowIDStr = a.WorkflowID
		tmp.GitHubRef = a.GitHubRef
	}
	return tmp
}

func (a answers) summary() string {
	return fmt.Sprintf(
		"Wallet: %s\nTrade: %s\nAccount: %s\nCurrency: %s\nHistory: %s\nTrend: %s\nWebhook: %t\n",
		a.Wallet, a.Trade, a.Account, a.Currency, a.History, a.Trend, a.EnableWebhook,
	)
}

func header(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(title))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
// Secrets are not asked for; they are read from the environment at run time.
func RunTUI(path string) error {
	a := defaultAnswers()
	var confirm bool

	header("STEP 1: DATABASES")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Paste the Notion database ids of your finance workspace.\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Wallet database").Description("Transfers: IN, OUT, EXCHANGE").Value(&a.Wallet).Validate(validateDatabaseID),
			huh.NewInput().Title("Trade database").Description("Spot and perp trades").Value(&a.Trade).Validate(validateDatabaseID),
			huh.NewInput().Title("Account database").Value(&a.Account).Validate(validateDatabaseID),
			huh.NewInput().Title("Currency database").Description("Current prices").Value(&a.Currency).Validate(validateDatabaseID),
			huh.NewInput().Title("Currency history database").Value(&a.History).Validate(validateOptionalDatabaseID),
			huh.NewInput().Title("Finance trend database").Value(&a.Trend).Validate(validateOptionalDatabaseID),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 2: THROUGHPUT")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Account write concurrency").Value(&a.WriteConcurrency).Validate(validatePositiveInt),
			huh.NewInput().Title("Price refresh concurrency").Value(&a.PriceConcurrency).Validate(validatePositiveInt),
		),
	).Run()
	if err != nil {
		return err
	}

	header("STEP 3: WEBHOOK")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Trigger the GitHub workflow from Slack?").
				Value(&a.EnableWebhook),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.EnableWebhook {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Slack channel id").Description("Direct messages are always accepted").Value(&a.ChannelID),
				huh.NewInput().Title("Bot name").Value(&a.BotName),
				huh.NewInput().Title("Trigger phrase").Value(&a.TriggerPhrase),
				huh.NewInput().Title("GitHub owner").Value(&a.GitHubOwner),
				huh.NewInput().Title("GitHub repository").Value(&a.GitHubRepo),
				huh.NewInput().Title("Workflow id").Value(&a.WorkflowID).Validate(validatePositiveInt),
				huh.NewInput().Title("Git ref").Value(&a.GitHubRef),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	header("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(a.summary()))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := config.Save(path, a.toConfig()); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf(
		"\n✓ Configuration saved to %s\nSet NOTION_TOKEN (and GITHUB_ACCESS_TOKEN for the webhook) before running.", path)))
	return nil
}

func validateDatabaseID(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("database id cannot be empty")
	}
	return validateOptionalDatabaseID(s)
}

// validateOptionalDatabaseID accepts dashed or compact 32 hex digit ids.
func validateOptionalDatabaseID(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	compact := strings.ReplaceAll(s, "-", "")
	if len(compact) != 32 {
		return fmt.Errorf("expected a 32 character Notion id")
	}
	for _, r := range compact {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fmt.Errorf("id must be hexadecimal")
		}
	}
	return nil
}

func validatePositiveInt(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
