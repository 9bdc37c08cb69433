package todos

import (
	"encoding/json"
	"strings"
)

type Todo struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Complete bool   `json:"complete"`

	// extra holds user fields of a stored document that are not part of Todo,
	// so a replace does not drop them.
	extra map[string]json.RawMessage
}

// UpdateInput carries the form fields of an update. Title is nil when the
// form had no title key. Complete is the presence of the complete key.
type UpdateInput struct {
	Title    *string
	Complete bool
}

// decodeDocument maps a stored JSON document onto a Todo. Store system
// properties (leading underscore) are discarded.
func decodeDocument(b []byte) (Todo, error) {
	var t Todo
	if err := json.Unmarshal(b, &t); err != nil {
		return Todo{}, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return Todo{}, err
	}
	for k := range fields {
		if k == "id" || k == "title" || k == "complete" || strings.HasPrefix(k, "_") {
			delete(fields, k)
		}
	}
	if len(fields) > 0 {
		t.extra = fields
	}
	return t, nil
}

// encodeDocument is the inverse of decodeDocument.
func encodeDocument(t Todo) ([]byte, error) {
	doc := make(map[string]any, len(t.extra)+3)
	for k, v := range t.extra {
		doc[k] = v
	}
	doc["id"] = t.ID
	doc["title"] = t.Title
	doc["complete"] = t.Complete
	return json.Marshal(doc)
}
