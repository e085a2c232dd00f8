package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"worksheet/internal/app"
	"worksheet/internal/domain"
	"worksheet/internal/editor"
)

// target is the --page/--element pair shared by the editing commands.
type target struct {
	page    string
	element string
}

func (t *target) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.page, "page", "", "page id (required)")
	cmd.Flags().StringVar(&t.element, "element", "", "element id; omit to target the page itself")
	_ = cmd.MarkFlagRequired("page")
}

func (t *target) open(r *runner, cmd *cobra.Command) (*app.App, error) {
	a, err := r.openApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	if _, err := a.Select(cmd.Context(), t.page, t.element); err != nil {
		a.Close()
		return nil, fmt.Errorf("select: %w", err)
	}
	return a, nil
}

func (r *runner) showCmd() *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the properties and editable fields of a page or element",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := t.open(r, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tg, err := a.Target()
			if err != nil {
				return err
			}
			fields, cs, err := a.Fields()
			if err != nil {
				return err
			}
			out := map[string]any{
				"componentType": tg.ComponentType,
				"properties":    tg.Properties,
				"editable":      cs != nil,
			}
			if cs != nil {
				out["fields"] = fields
				out["quickActions"] = a.QuickActions()
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	t.bind(cmd)
	return cmd
}

func (r *runner) setCmd() *cobra.Command {
	var (
		t     target
		e     editor.Edit
		op    string
		value string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Apply one schema-checked edit, as the property form would",
		Example: `  worksheet set --page p1 --element img --key width --value 320
  worksheet set --page p1 --element mc --op append --key options
  worksheet set --page p1 --element mc --op update-item-field --key options --index 1 --field text --value Horse`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e.Op = editor.Op(op)

			a, err := t.open(r, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("value") {
				_, cs, err := a.Fields()
				if err != nil {
					return err
				}
				e.Value = editor.ParseValue(cs, e, value)
			}

			props, err := a.ApplyManualEdit(cmd.Context(), e)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), props)
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&op, "op", string(editor.OpSet), "set, append, update-item, update-item-field, remove or set-field")
	cmd.Flags().StringVar(&e.Key, "key", "", "top-level property key (required)")
	cmd.Flags().IntVar(&e.Index, "index", 0, "list index")
	cmd.Flags().StringVar(&e.Field, "field", "", "nested field")
	cmd.Flags().StringVar(&value, "value", "", "new value; JSON for numbers, booleans, lists and objects, verbatim text otherwise")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func (r *runner) editCmd() *cobra.Command {
	var (
		t      target
		action string
		topic  string
		age    string
	)
	cmd := &cobra.Command{
		Use:   "edit [instruction]",
		Short: "Send a natural-language edit, or a quick action, to the edit gateway",
		Example: `  worksheet edit --page p1 --element img "make it bigger"
  worksheet edit --page p1 --action landscape`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			instruction := strings.TrimSpace(strings.Join(args, " "))
			if instruction == "" && action == "" {
				return errors.New("an instruction or --action is required")
			}

			a, err := t.open(r, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ectx := a.EditContext()
			if topic != "" {
				ectx.Topic = topic
			}
			if age != "" {
				ectx.AgeGroup = age
			}
			a.SetEditContext(ectx)

			var rec domain.WorksheetEdit
			if action != "" {
				rec, err = a.RunQuickAction(cmd.Context(), action)
			} else {
				rec, err = a.SubmitEdit(cmd.Context(), instruction)
			}
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), rec); err != nil {
				return err
			}
			if !rec.Success {
				return fmt.Errorf("edit failed: %s", rec.Error)
			}
			return nil
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&action, "action", "", "quick action id instead of an instruction")
	cmd.Flags().StringVar(&topic, "topic", "", "worksheet topic passed to the gateway")
	cmd.Flags().StringVar(&age, "age-group", "", "learner age group passed to the gateway")
	return cmd
}

func (r *runner) historyCmd() *cobra.Command {
	var (
		selectionKey string
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List this session's edit records, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := r.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records := a.History()
			if selectionKey != "" {
				records = a.HistoryFor(selectionKey)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTARGET\tRESULT\tINSTRUCTION")
			for _, rec := range records {
				result := "ok"
				if !rec.Success {
					result = "failed: " + rec.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					rec.Timestamp.Local().Format("2006-01-02 15:04:05"), rec.SelectionKey, result, rec.Instruction)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&selectionKey, "selection", "", "only records for this selection key")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}
