package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

func reconcilePrompt(q Query, limit int, d schema.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Find up to %d entities matching the name %q.\n", limit, q.Text)
	if q.Type != "" {
		fmt.Fprintf(&sb, "Only consider entities of type %q.\n", q.Type)
	}
	if len(q.Properties) > 0 {
		sb.WriteString("The entity is known to have these property values:\n")
		for _, p := range q.Properties {
			fmt.Fprintf(&sb, "- %s: %s\n", p.ID, renderValue(p.Value))
		}
	}
	sb.WriteString("Rank candidates best first. Give each a score between 0 and 1, ")
	sb.WriteString("set match to true only when the candidate is certainly the entity, ")
	sb.WriteString("and list its types as {id, name} objects.\n")
	sb.WriteString(d.Describe())
	return sb.String()
}

func suggestPrompt(kind SuggestKind, prefix string, limit int, d schema.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Suggest up to %d %s whose names start with or closely complete %q.\n",
		limit, kind.plural(), prefix)
	sb.WriteString("Order them by how likely the user means them.\n")
	sb.WriteString(d.Describe())
	return sb.String()
}

func previewPrompt(id string, d schema.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Describe the entity with identifier %q for a small preview card.\n", id)
	sb.WriteString("Give its name, a one or two sentence description, and a short HTML fragment without scripts or styles.\n")
	sb.WriteString(d.Describe())
	return sb.String()
}

func extendPrompt(id string, props []ExtendProperty, d schema.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "For the entity with identifier %q, give the values of these properties:\n", id)
	for _, p := range props {
		fmt.Fprintf(&sb, "- %s\n", p.ID)
	}
	sb.WriteString("Use str for text, num for numbers, bool for booleans, date for ISO 8601 dates, ")
	sb.WriteString("and id plus name for values that are themselves entities. ")
	sb.WriteString("Use an empty values list when a property is unknown.\n")
	sb.WriteString(d.Describe())
	return sb.String()
}

func proposePrompt(typeID string, limit int, d schema.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "List up to %d properties commonly recorded for entities of type %q, most useful first.\n", limit, typeID)
	sb.WriteString(d.Describe())
	return sb.String()
}

func chunkPrompt(input, data string, d schema.Descriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Given the input chunk %q and the following data:\n\n---\n%s\n---\n\n", input, data)
	sb.WriteString("Determine the record of the data that best matches the input chunk. ")
	sb.WriteString("Give the record as match and your confidence from 0 to 100. ")
	sb.WriteString("If nothing matches, set match to null.\n")
	sb.WriteString(d.Describe())
	return sb.String()
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "(any)"
	case string:
		return t
	case map[string]any:
		if name, ok := t["name"].(string); ok {
			return name
		}
		if id, ok := t["id"].(string); ok {
			return id
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
