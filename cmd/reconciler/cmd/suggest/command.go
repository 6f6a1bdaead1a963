// Package suggest provides the suggest command.
package suggest

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knwanna/universal-reconciliation-service/cmd/application"
	"github.com/knwanna/universal-reconciliation-service/internal/cmd/output"
	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// NewCommand creates the suggest command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "suggest <entity|type|property> <prefix>",
		GroupID:   "core",
		Short:     "Auto-complete entities, types or properties",
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: []string{string(reconcile.SuggestEntity), string(reconcile.SuggestType), string(reconcile.SuggestProperty)},
		Example: `  reconciler suggest entity "doug"
  reconciler suggest type "city" --limit 5
  reconciler suggest property "date of" -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := reconcile.ParseSuggestKind(args[0])
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			engine, err := app.Engine()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
			defer cancel()

			res, err := engine.Suggest(ctx, kind, strings.Join(args[1:], " "), limit)
			if err != nil {
				return err
			}
			if res.Err != nil {
				app.Logger().Warn().
					Str("code", res.Err.Code).
					Str("message", res.Err.Message).
					Msg("Backend could not answer")
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.FormatSuggest(cmd.OutOrStdout(), format, res)
		},
	}

	cmd.Flags().Int("limit", 0, "Maximum suggestions (default 10)")

	return cmd
}
