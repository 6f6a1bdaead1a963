// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/internal/cmd/emoji"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// maxDescription is how much of a description a table cell shows.
const maxDescription = 60

// BatchToTableData converts a reconciliation result to one row per
// candidate, ordered by query id then rank. Failed queries get one row
// carrying the error code.
func BatchToTableData(br *reconcile.BatchResult) Data {
	ids := make([]string, 0, len(br.Results))
	for id := range br.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data := Data{
		Headers:         []string{"Query", "Rank", "ID", "Name", "Type", "Score", "Match", "Description"},
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignCenter, AlignLeft},
	}
	for _, id := range ids {
		res := br.Results[id]
		if res.Err != nil {
			data.Rows = append(data.Rows, []string{id, "-", "-", "-", "-", "-", "-", "error: " + res.Err.Code})
			continue
		}
		if len(res.Candidates) == 0 {
			data.Rows = append(data.Rows, []string{id, "-", "-", "(no candidates)", "-", "-", "-", "-"})
			continue
		}
		for i, c := range res.Candidates {
			data.Rows = append(data.Rows, []string{
				id,
				strconv.Itoa(i + 1),
				c.ID,
				c.Name,
				typeNames(c.Types),
				FormatScore(c.Score),
				FormatMatch(c.Match),
				Truncate(c.Description, maxDescription),
			})
		}
	}
	return data
}

// SuggestToTableData converts suggestions to table rows.
func SuggestToTableData(res *reconcile.SuggestResult) Data {
	data := Data{
		Headers:         []string{"ID", "Name", "Score", "Description"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
	for _, s := range res.Result {
		data.Rows = append(data.Rows, []string{
			s.ID,
			s.Name,
			FormatScore(s.Score),
			Truncate(s.Description, maxDescription),
		})
	}
	return data
}

// ExtendToTableData converts a data extension to one row per entity with
// one column per requested property.
func ExtendToTableData(resp *reconcile.ExtendResponse) Data {
	data := Data{Headers: []string{"ID"}}
	for _, m := range resp.Meta {
		label := m.ID
		if m.Name != "" && m.Name != m.ID {
			label = fmt.Sprintf("%s (%s)", m.Name, m.ID)
		}
		data.Headers = append(data.Headers, label)
	}

	ids := make([]string, 0, len(resp.Rows))
	for id := range resp.Rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		row := []string{id}
		if info := resp.Errors[id]; info != nil {
			for range resp.Meta {
				row = append(row, "error: "+info.Code)
			}
			data.Rows = append(data.Rows, row)
			continue
		}
		for _, m := range resp.Meta {
			row = append(row, FormatValues(resp.Rows[id][m.ID]))
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// FormatScore renders a score with two decimals, or "-" when unset.
func FormatScore(score float64) string {
	if score == 0 {
		return "-"
	}
	return strconv.FormatFloat(score, 'f', 2, 64)
}

// FormatMatch renders the match flag.
func FormatMatch(match bool) string {
	if match {
		return emoji.Match
	}
	return ""
}

// FormatValues joins property values for one cell.
func FormatValues(values []reconcile.Value) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, FormatValue(v))
	}
	return strings.Join(parts, ", ")
}

// FormatValue renders one property value.
func FormatValue(v reconcile.Value) string {
	switch {
	case v.Str != nil:
		return *v.Str
	case v.Num != nil:
		return strconv.FormatFloat(*v.Num, 'f', -1, 64)
	case v.Bool != nil:
		return strconv.FormatBool(*v.Bool)
	case v.Date != nil:
		return *v.Date
	case v.Name != "" && v.ID != "":
		return fmt.Sprintf("%s (%s)", v.Name, v.ID)
	case v.Name != "":
		return v.Name
	default:
		return v.ID
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func typeNames(types []reconcile.Type) string {
	if len(types) == 0 {
		return "-"
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		if t.Name != "" {
			names = append(names, t.Name)
		} else {
			names = append(names, t.ID)
		}
	}
	return strings.Join(names, ", ")
}
