// Package extend provides the data extension commands.
package extend

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/knwanna/universal-reconciliation-service/cmd/application"
	"github.com/knwanna/universal-reconciliation-service/internal/cmd/output"
	"github.com/knwanna/universal-reconciliation-service/internal/cmd/table"
	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// NewCommand creates the extend command with its propose subcommand.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extend",
		GroupID: "core",
		Short:   "Fetch property values for entity ids",
		Example: `  reconciler extend --id Q42 --property P569 --property P19
  reconciler extend --id Q42 --id Q5 --property P569 --limit 1 -o yaml
  reconciler extend propose /people/person`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, _ := cmd.Flags().GetStringArray("id")
			propIDs, _ := cmd.Flags().GetStringArray("property")
			limit, _ := cmd.Flags().GetInt("limit")

			req := reconcile.ExtendRequest{IDs: ids}
			for _, p := range propIDs {
				prop := reconcile.ExtendProperty{ID: p}
				if limit > 0 {
					prop.Settings = map[string]any{"limit": limit}
				}
				req.Properties = append(req.Properties, prop)
			}

			engine, err := app.Engine()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
			defer cancel()

			resp, err := engine.Extend(ctx, req)
			if err != nil {
				return err
			}
			for id, info := range resp.Errors {
				app.Logger().Warn().Str("id", id).Str("code", info.Code).Msg("Extension failed for entity")
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.FormatExtend(cmd.OutOrStdout(), format, resp)
		},
	}

	cmd.Flags().StringArray("id", nil, "Entity id (repeatable)")
	cmd.Flags().StringArray("property", nil, "Property id (repeatable)")
	cmd.Flags().Int("limit", 0, "Maximum values per property")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("property")

	cmd.AddCommand(newProposeCommand(app))

	return cmd
}

func newProposeCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose <type>",
		Short: "Propose properties worth fetching for a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			engine, err := app.Engine()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), constants.CommandTimeout)
			defer cancel()

			resp, err := engine.ProposeProperties(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if resp.Err != nil {
				app.Logger().Warn().Str("code", resp.Err.Code).Msg("Backend could not answer")
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, resp, func() table.Data {
				data := table.Data{Headers: []string{"ID", "Name", "Description"}}
				for _, p := range resp.Properties {
					data.Rows = append(data.Rows, []string{p.ID, p.Name, table.Truncate(p.Description, 60)})
				}
				return data
			})
		},
	}

	cmd.Flags().Int("limit", 0, "Maximum properties (default 10)")

	return cmd
}
