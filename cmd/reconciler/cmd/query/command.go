// Package query provides the one-shot reconcile command.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knwanna/universal-reconciliation-service/cmd/application"
	"github.com/knwanna/universal-reconciliation-service/internal/cmd/output"
	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// NewCommand creates the reconcile command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reconcile [text...]",
		GroupID: "core",
		Short:   "Reconcile names against the answer backend",
		Long: `Reconcile sends one query per argument through the reconciliation engine
and prints the ranked candidates.

A whole batch in the protocol's JSON form can be read from a file with
--file ("-" reads standard input).`,
		Example: `  # One query
  reconciler reconcile "Douglas Adams"

  # Several queries with a type hint
  reconciler reconcile "Paris" "Lyon" --type /location/citytown --limit 3

  # Property constraint
  reconciler reconcile "Adams" --property P569=1952-03-11

  # Batch file, JSON output
  reconciler reconcile --file queries.json -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, app)
		},
	}

	cmd.Flags().String("type", "", "Type hint applied to every query")
	cmd.Flags().Int("limit", 0, "Maximum candidates per query (default 5)")
	cmd.Flags().StringArray("property", nil, "Property constraint as pid=value (repeatable)")
	cmd.Flags().StringP("file", "f", "", "Read a JSON batch from file (- for stdin)")
	cmd.Flags().Duration("timeout", constants.CommandTimeout, "Overall deadline")

	return cmd
}

func run(cmd *cobra.Command, args []string, app application.Application) error {
	batch, err := buildBatch(cmd, args)
	if err != nil {
		return err
	}

	engine, err := app.Engine()
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	app.Logger().Debug().Int("queries", len(batch)).Msg("Reconciling batch")
	result, err := engine.Reconcile(ctx, batch)
	if err != nil {
		return err
	}

	format := output.DetectFormat(app.OutputFormat())
	return output.FormatBatch(cmd.OutOrStdout(), format, result)
}

// buildBatch assembles the batch from --file or from positional arguments.
func buildBatch(cmd *cobra.Command, args []string) (reconcile.Batch, error) {
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		if len(args) > 0 {
			return nil, &errors.ValidationError{Field: "file", Message: "cannot be combined with query arguments"}
		}
		return readBatch(cmd.InOrStdin(), file)
	}
	if len(args) == 0 {
		return nil, &errors.ValidationError{Field: "text", Message: "at least one query is required"}
	}

	typeHint, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")
	rawProps, _ := cmd.Flags().GetStringArray("property")
	props, err := ParseProperties(rawProps)
	if err != nil {
		return nil, err
	}

	batch := make(reconcile.Batch, len(args))
	for i, text := range args {
		batch[fmt.Sprintf("q%d", i)] = reconcile.Query{
			Text:       text,
			Type:       typeHint,
			Limit:      limit,
			Properties: props,
		}
	}
	return batch, nil
}

func readBatch(stdin io.Reader, file string) (reconcile.Batch, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, errors.WrapParse("json", file, err)
	}

	// Accept both {"queries": {...}} and the bare batch.
	var envelope struct {
		Queries reconcile.Batch `json:"queries"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Queries) > 0 {
		return envelope.Queries, nil
	}
	var batch reconcile.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, errors.WrapParse("json", file, err)
	}
	return batch, nil
}

// ParseProperties parses pid=value constraints.
func ParseProperties(raw []string) ([]reconcile.PropertyConstraint, error) {
	props := make([]reconcile.PropertyConstraint, 0, len(raw))
	for _, p := range raw {
		pid, value, ok := strings.Cut(p, "=")
		pid = strings.TrimSpace(pid)
		if !ok || pid == "" {
			return nil, &errors.ValidationError{Field: "property", Value: p, Message: "must be pid=value"}
		}
		props = append(props, reconcile.PropertyConstraint{ID: pid, Value: value})
	}
	return props, nil
}
