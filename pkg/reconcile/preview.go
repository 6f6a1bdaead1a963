package reconcile

import (
	"bytes"
	"context"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/pkg/errors"
	"github.com/knwanna/universal-reconciliation-service/pkg/logging"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

var previewTemplate = template.Must(template.New("preview").Parse(
	`<div class="urs-preview" style="font-family:sans-serif;padding:8px">` +
		`<h3 style="margin:0 0 4px">{{.Name}}</h3>` +
		`<div style="color:#666;font-size:smaller">{{.ID}}</div>` +
		`{{if .Description}}<p>{{.Description}}</p>{{end}}` +
		`</div>`))

var tagPattern = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]*>`)

type previewCard struct {
	ID          string
	Name        string
	Description string
}

// Preview renders an HTML card describing id. Backend failures yield a
// minimal card rather than an error; only an empty id is rejected.
func (e *Engine) Preview(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &errors.ValidationError{Field: "id", Message: "must not be empty"}
	}

	ctx = logging.WithField(e.scope(ctx, schema.OpPreview), "entity_id", id)
	card := previewCard{ID: id, Name: id}
	d := schema.MustLookup(schema.OpPreview)
	ans, err := e.ask(ctx, d, previewPrompt(id, d), nil)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Preview failed, using fallback")
	} else if obj, ok := ans.value.(map[string]any); ok {
		if name := stringField(obj, nameKeys...); name != "" {
			card.Name = name
		}
		card.Description = stringField(obj, "description")
		if card.Description == "" {
			card.Description = plainText(stringField(obj, "html"))
		}
	}
	return renderPreview(card), nil
}

// FallbackPreview renders the minimal card for id.
func FallbackPreview(id string) string {
	return renderPreview(previewCard{ID: id, Name: id})
}

func renderPreview(card previewCard) string {
	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, card); err != nil {
		return "<div>" + html.EscapeString(card.ID) + "</div>"
	}
	return buf.String()
}

// plainText strips markup from a backend HTML fragment.
func plainText(fragment string) string {
	text := html.UnescapeString(tagPattern.ReplaceAllString(fragment, " "))
	return strings.Join(strings.Fields(text), " ")
}
