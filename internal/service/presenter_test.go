package service

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestApplySort(t *testing.T) {
	tests := []struct {
		sql        string
		column     string
		descending bool
		want       string
	}{
		{
			"select * from foo", "bar", false,
			`select * from (select * from foo) as results order by "bar"`,
		},
		{
			"select * from foo", "bar", true,
			`select * from (select * from foo) as results order by "bar" desc`,
		},
		{
			`select * from (select * from foo) as results order by "bar" desc`, "bar", false,
			`select * from (select * from foo) as results order by "bar"`,
		},
		{
			`select * from (select * from foo) as results order by "bar"`, "bar", true,
			`select * from (select * from foo) as results order by "bar" desc`,
		},
		{
			// Switching sort column replaces the clause instead of nesting
			`select * from (select * from foo) as results order by "bar"`, "baz", false,
			`select * from (select * from foo) as results order by "baz"`,
		},
	}

	for _, tt := range tests {
		if got := ApplySort(tt.sql, tt.column, tt.descending); got != tt.want {
			t.Errorf("ApplySort(%q, %q, %v) = %q, want %q", tt.sql, tt.column, tt.descending, got, tt.want)
		}
	}
}

func TestApplySortIdempotent(t *testing.T) {
	got := ApplySort(ApplySort("select * from foo", "c", false), "c", true)
	if !strings.HasSuffix(got, `order by "c" desc`) {
		t.Errorf("got %q", got)
	}
	if strings.Count(got, "order by") != 1 {
		t.Errorf("repeated ApplySort nested clauses: %q", got)
	}
	if strings.Count(got, "as results") != 1 {
		t.Errorf("repeated ApplySort nested subqueries: %q", got)
	}
}

func TestWidgetRegistryChoose(t *testing.T) {
	r := NewWidgetRegistry()

	tests := []struct {
		name    string
		columns []string
		want    string
	}{
		{"Bar widget", []string{"bar_label", "bar_quantity"}, "widgets/bar"},
		{"Column order irrelevant", []string{"bar_quantity", "bar_label"}, "widgets/bar"},
		{"Big number", []string{"big_number", "label"}, "widgets/big-number"},
		{"Markdown", []string{"markdown"}, "widgets/markdown"},
		{"Unknown shape falls back", []string{"a", "b", "c"}, "widgets/default"},
		{"Empty falls back", nil, "widgets/default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Choose(tt.columns); got != tt.want {
				t.Errorf("Choose(%v) = %q, want %q", tt.columns, got, tt.want)
			}
		})
	}
}

func TestWidgetRegistryLongKeyFallsBack(t *testing.T) {
	r := NewWidgetRegistry()
	long := strings.Repeat("c", 300)
	r.Register("widgets/never", long)
	if got := r.Choose([]string{long}); got != "widgets/default" {
		t.Errorf("over-long composite key must always use the default, got %q", got)
	}
}

func TestDisplayableRows(t *testing.T) {
	rows := [][]interface{}{
		{int64(1), "plain", map[string]interface{}{"k": "v"}},
		{nil, []interface{}{"a", "b"}, 2.5},
	}

	fixed := DisplayableRows(rows)

	if fixed[0][0] != int64(1) || fixed[0][1] != "plain" {
		t.Errorf("scalar cells must pass through: %v", fixed[0])
	}

	// Structured cells serialize to JSON text that parses back equal
	cell, ok := fixed[0][2].(string)
	if !ok {
		t.Fatalf("map cell not serialized: %T", fixed[0][2])
	}
	var back map[string]interface{}
	if err := json.Unmarshal([]byte(cell), &back); err != nil {
		t.Fatalf("serialized cell is not JSON: %v", err)
	}
	if !reflect.DeepEqual(back, map[string]interface{}{"k": "v"}) {
		t.Errorf("round-trip mismatch: %v", back)
	}

	listCell, ok := fixed[1][1].(string)
	if !ok || listCell != `["a","b"]` {
		t.Errorf("list cell = %v", fixed[1][1])
	}
}

func TestUnambiguousColumns(t *testing.T) {
	got := UnambiguousColumns([]string{"id", "name", "id", "total"})
	want := []string{"name", "total"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
