package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DisplayableRows returns a copy of rows with non-scalar cells (maps, slices)
// serialized to JSON text so every cell is safe to render or re-encode.
func DisplayableRows(rows [][]interface{}) [][]interface{} {
	fixed := make([][]interface{}, len(rows))
	for i, row := range rows {
		fixedRow := make([]interface{}, len(row))
		for j, cell := range row {
			switch cell.(type) {
			case map[string]interface{}, []interface{}:
				if b, err := json.Marshal(cell); err == nil {
					fixedRow[j] = string(b)
					continue
				}
			}
			fixedRow[j] = cell
		}
		fixed[i] = fixedRow
	}
	return fixed
}

// maxWidgetKeyLength bounds the composite widget key; anything longer always
// falls back to the default widget.
const maxWidgetKeyLength = 255

// WidgetRegistry maps result shapes (sorted column-name sets) to named
// rendering widgets, with a guaranteed default fallback. Registered once at
// startup; lookups are read-only.
type WidgetRegistry struct {
	defaultName string
	byKey       map[string]string
}

// NewWidgetRegistry returns a registry preloaded with the built-in widgets.
func NewWidgetRegistry() *WidgetRegistry {
	r := &WidgetRegistry{
		defaultName: "widgets/default",
		byKey:       map[string]string{},
	}
	r.Register("widgets/bar", "bar_label", "bar_quantity")
	r.Register("widgets/big-number", "big_number", "label")
	r.Register("widgets/markdown", "markdown")
	r.Register("widgets/html", "html")
	return r
}

// Register binds a widget name to the set of columns that selects it.
// Column order is irrelevant.
func (r *WidgetRegistry) Register(name string, columns ...string) {
	r.byKey[widgetKey(columns)] = name
}

// Choose picks the widget for a result's columns. Two queries with the same
// column set in different order share a widget because the key is built from
// a stable lexicographic sort.
func (r *WidgetRegistry) Choose(columns []string) string {
	key := widgetKey(columns)
	if len(key) > maxWidgetKeyLength {
		return r.defaultName
	}
	if name, ok := r.byKey[key]; ok {
		return name
	}
	return r.defaultName
}

func widgetKey(columns []string) string {
	sorted := make([]string, len(columns))
	copy(sorted, columns)
	sort.Strings(sorted)
	return strings.Join(sorted, "-")
}

// UnambiguousColumns returns the columns that appear exactly once in the
// result; only those qualify for sort and group-and-count links.
func UnambiguousColumns(columns []string) []string {
	counts := map[string]int{}
	for _, c := range columns {
		counts[c]++
	}
	var out []string
	for _, c := range columns {
		if counts[c] == 1 {
			out = append(out, c)
		}
	}
	return out
}

// trailingOrderBy matches an order-by clause over one double-quoted column at
// the very end of the SQL, as produced by ApplySort.
var trailingOrderBy = regexp.MustCompile(`(?i)\s+order by\s+"[^"]+"(\s+desc)?\s*$`)

// ApplySort returns sqlText ordered by column. If the text already ends with
// a sort clause it is replaced in place, so repeated application never nests
// subqueries; otherwise the original SQL is wrapped as a named subquery.
// Identifiers are double-quoted unconditionally.
func ApplySort(sqlText, column string, descending bool) string {
	clause := fmt.Sprintf(` order by "%s"`, column)
	if descending {
		clause += " desc"
	}
	if loc := trailingOrderBy.FindStringIndex(sqlText); loc != nil {
		return sqlText[:loc[0]] + clause
	}
	return fmt.Sprintf(`select * from (%s) as results%s`, sqlText, clause)
}
