package garage

import (
	"bytes"
	"encoding/json"
	"sort"

	"garage-go/internal/model"
)

// ChangeLine is one changed field ready for display.
type ChangeLine struct {
	Field  string
	Before string
	After  string
}

// VisibleChanges returns exactly the fields the backend marked as changed,
// sorted by field name. Values are pretty-printed as-is; nested documents are
// shown whole.
func VisibleChanges(diff *model.SnapshotDiff) []ChangeLine {
	if diff == nil {
		return nil
	}
	lines := make([]ChangeLine, 0, len(diff.Changes))
	for field, change := range diff.Changes {
		if !change.HasChanges {
			continue
		}
		lines = append(lines, ChangeLine{
			Field:  field,
			Before: prettyJSON(change.Before),
			After:  prettyJSON(change.After),
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Field < lines[j].Field })
	return lines
}

// prettyJSON indents raw with two spaces. Absent values render as "null" and
// invalid JSON is shown verbatim.
func prettyJSON(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
