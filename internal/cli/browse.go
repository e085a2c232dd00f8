package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"worksheet/internal/domain"
	"worksheet/internal/schema"
)

func (r *runner) schemasCmd() *cobra.Command {
	var patch bool
	cmd := &cobra.Command{
		Use:   "schemas [type]",
		Short: "List component types, or print one type's property schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := schema.Builtin()
			if r.opts.Registry != nil {
				reg = r.opts.Registry
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TYPE\tPROPERTIES\tQUICK ACTIONS")
				for _, t := range reg.Types() {
					s := reg.Get(t)
					fmt.Fprintf(tw, "%s\t%d\t%d\n", t, len(s.Properties), len(reg.QuickActions(t)))
				}
				return tw.Flush()
			}

			s := reg.Get(args[0])
			if s == nil {
				return fmt.Errorf("component type %q has no editable properties", args[0])
			}
			if patch {
				return printJSON(out, schema.JSONSchema(s, false))
			}
			return printJSON(out, map[string]any{
				"schema":       s,
				"quickActions": reg.QuickActions(args[0]),
			})
		},
	}
	cmd.Flags().BoolVar(&patch, "patch", false, "print the JSON Schema a gateway patch must satisfy")
	return cmd
}

func (r *runner) worksheetsCmd() *cobra.Command {
	var create string
	cmd := &cobra.Command{
		Use:   "worksheets",
		Short: "List worksheets, or create one with --create",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if create != "" {
				ws, err := a.Worksheets().CreateWorksheet(create)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ws)
			}

			list, err := a.Worksheets().ListWorksheets()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED")
			for _, ws := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ws.ID, ws.Name, ws.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&create, "create", "", "name of a worksheet to create")
	return cmd
}

func (r *runner) pagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <worksheet-id>",
		Short: "List the pages of a worksheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			pages, err := a.Worksheets().ListPages(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, p := range pages {
				fmt.Fprintf(tw, "%s\t%s\n", p.ID, p.Name)
			}
			return tw.Flush()
		},
	}
}

func (r *runner) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <page-state.json>",
		Short: "Import a page and its elements from a JSON page state",
		Long: `Reads {"page": {...}, "elements": [...]} and stores it, replacing any
elements the page already had. The worksheet is created when missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var st domain.PageState
			if err := json.Unmarshal(data, &st); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			a, err := r.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.Worksheets().ImportPageState(cmd.Context(), st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported page %s with %d elements\n", saved.Page.ID, len(saved.Elements))
			return nil
		},
	}
}
