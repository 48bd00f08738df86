package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/catalog"
	"github.com/abelbrown/delayboard/internal/config"
	"github.com/abelbrown/delayboard/internal/logging"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	apiURL   string
	timeout  time.Duration
	asJSON   bool
	logLevel string
}

func newRoot() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "delayctl",
		Short:         "Delay dashboard backend CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitWriter(cmd.ErrOrStderr(), g.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&g.apiURL, "api", "", "Backend base URL (default from config)")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 15*time.Second, "Per-request timeout")
	root.PersistentFlags().BoolVar(&g.asJSON, "json", false, "Print raw JSON")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(
		linesCmd(g),
		statsCmd(g),
		reportsCmd(g),
		recentCmd(g),
		alertsCmd(g),
		reportCmd(g),
		upvoteCmd(g),
		subscribeCmd(g),
		eventsCmd(),
		mockCmd(),
	)
	return root
}

// setup loads config and returns a client plus the line catalog.
func (g *globals) setup() (*api.Client, *catalog.Catalog, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	base := cfg.API.BaseURL
	if g.apiURL != "" {
		base = g.apiURL
	}

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		if cat, err = catalog.LoadFile(cfg.CatalogFile); err != nil {
			return nil, nil, err
		}
	}

	client := api.New(base,
		api.WithTimeout(g.timeout),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		api.WithAlertConcurrency(cfg.API.AlertConcurrency),
	)
	return client, cat, nil
}

func (g *globals) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 4*g.timeout)
}

// emit prints v as indented JSON when --json is set and reports whether it
// did.
func (g *globals) emit(w io.Writer, v any) (bool, error) {
	if !g.asJSON {
		return false, nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderTable formats rows as a bordered table.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.String())
}
