// Package cli is the worksheet command line: schema inspection, page import,
// one-shot edits and the MCP stdio server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"worksheet/internal/app"
	"worksheet/internal/config"
)

type runner struct {
	version    string
	configPath string
	opts       app.Options
}

// NewRootCmd builds the command tree. opts is passed to every app the
// commands open.
func NewRootCmd(version string, opts app.Options) *cobra.Command {
	r := &runner{version: version, opts: opts}

	root := &cobra.Command{
		Use:   "worksheet",
		Short: "Schema-driven property editing for worksheet pages",
		Long: `Worksheet edits the properties of worksheet pages and the components placed on
them, either field by field against each component's schema or through a
natural-language instruction sent to an edit gateway.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&r.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(
		r.schemasCmd(),
		r.worksheetsCmd(),
		r.pagesCmd(),
		r.importCmd(),
		r.showCmd(),
		r.setCmd(),
		r.editCmd(),
		r.historyCmd(),
		r.mcpCmd(),
		r.configCmd(),
		r.versionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	if err := NewRootCmd(version, app.Options{}).Execute(); err != nil {
		return 1
	}
	return 0
}

func (r *runner) loadConfig() (*config.Config, error) {
	return config.Load(r.configPath)
}

func (r *runner) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, r.opts)
	if err != nil {
		return nil, fmt.Errorf("open worksheet store: %w", err)
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
