package output

import (
	"io"

	"github.com/knwanna/universal-reconciliation-service/internal/cmd/table"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// Write renders v in format. Tabular formats render toTable(); the others
// encode v itself.
func Write(w io.Writer, format Format, v any, toTable func() table.Data) error {
	formatter := NewFormatter(format)
	if Tabular(format) && toTable != nil {
		return formatter.Format(w, toTable())
	}
	return formatter.Format(w, v)
}

// FormatBatch writes a reconciliation result. Structured formats get the
// protocol response document.
func FormatBatch(w io.Writer, format Format, br *reconcile.BatchResult) error {
	return Write(w, format, reconcile.Assemble(br), func() table.Data {
		return table.BatchToTableData(br)
	})
}

// FormatSuggest writes suggestions.
func FormatSuggest(w io.Writer, format Format, res *reconcile.SuggestResult) error {
	return Write(w, format, res, func() table.Data {
		return table.SuggestToTableData(res)
	})
}

// FormatExtend writes a data extension.
func FormatExtend(w io.Writer, format Format, resp *reconcile.ExtendResponse) error {
	return Write(w, format, resp, func() table.Data {
		return table.ExtendToTableData(resp)
	})
}
