package reconcile

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
)

// validateBatch rejects malformed batches before any backend call.
func (e *Engine) validateBatch(batch Batch) error {
	if len(batch) == 0 {
		return &errors.ValidationError{
			Field:   "queries",
			Message: "batch must contain at least one query",
		}
	}
	if len(batch) > e.opts.maxBatchSize {
		return &errors.ValidationError{
			Field:   "queries",
			Value:   len(batch),
			Message: fmt.Sprintf("batch of %d queries exceeds the maximum of %d", len(batch), e.opts.maxBatchSize),
		}
	}

	var details []string
	for _, id := range sortedIDs(batch) {
		q := batch[id]
		if strings.TrimSpace(id) == "" {
			details = append(details, "query id must not be empty")
			continue
		}
		text := strings.TrimSpace(q.Text)
		switch {
		case text == "":
			details = append(details, fmt.Sprintf("queries.%s.query: must not be empty", id))
		case utf8.RuneCountInString(text) > constants.MaxQueryLength:
			details = append(details, fmt.Sprintf("queries.%s.query: longer than %d characters", id, constants.MaxQueryLength))
		}
		if utf8.RuneCountInString(q.Type) > constants.MaxTypeLength {
			details = append(details, fmt.Sprintf("queries.%s.type: longer than %d characters", id, constants.MaxTypeLength))
		}
		if q.Limit < 0 {
			details = append(details, fmt.Sprintf("queries.%s.limit: must not be negative", id))
		}
		for i, p := range q.Properties {
			if strings.TrimSpace(p.ID) == "" {
				details = append(details, fmt.Sprintf("queries.%s.properties[%d].pid: must not be empty", id, i))
			}
		}
	}

	if len(details) > 0 {
		return &errors.ValidationError{
			Field:   "queries",
			Message: strings.Join(details, "; "),
			Details: details,
		}
	}
	return nil
}
