package core

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
)

func TestExtractNamedParameters(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    []string
		wantErr bool
	}{
		{
			name: "Two placeholders",
			sql:  "select %(foo)s as foo, %(bar)s as bar",
			want: []string{"foo", "bar"},
		},
		{
			name: "Repeated name deduplicated",
			sql:  "select %(foo)s, %(foo)s",
			want: []string{"foo"},
		},
		{
			name: "No placeholders",
			sql:  "select 1",
			want: nil,
		},
		{
			name: "Escaped percent is literal",
			sql:  "select * from t where name like 'a%%'",
			want: nil,
		},
		{
			name: "Escaped percent next to placeholder",
			sql:  "select * from t where name like %(prefix)s || '%%'",
			want: []string{"prefix"},
		},
		{
			name:    "Stray percent",
			sql:     "select * from t where name like 'a%'",
			wantErr: true,
		},
		{
			name:    "Stray percent after valid placeholder",
			sql:     "select %(foo)s where x like 'b%'",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractNamedParameters(tt.sql)
			if tt.wantErr {
				var syntaxErr *ParameterSyntaxError
				if !errors.As(err, &syntaxErr) {
					t.Fatalf("expected ParameterSyntaxError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParameterSetAccumulation(t *testing.T) {
	set := NewParameterSet()
	if err := set.Extract("select %(foo)s, %(bar)s", nil); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if err := set.Extract("select %(foo)s, %(baz)s", nil); err != nil {
		t.Fatalf("extract: %v", err)
	}

	params := set.Parameters()
	var names []string
	for _, p := range params {
		names = append(names, p.Name)
	}
	want := []string{"foo", "bar", "baz"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}
}

func TestParameterSetDefaultConflict(t *testing.T) {
	set := NewParameterSet()
	if err := set.Extract("select %(foo)s", map[string]string{"foo": "1"}); err != nil {
		t.Fatalf("extract: %v", err)
	}

	// Same default again is fine
	if err := set.Extract("select %(foo)s", map[string]string{"foo": "1"}); err != nil {
		t.Fatalf("re-extract with identical default: %v", err)
	}

	err := set.Extract("select %(foo)s", map[string]string{"foo": "2"})
	var conflict *ParameterConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ParameterConflictError, got %v", err)
	}
	if conflict.Existing != "1" || conflict.Declared != "2" {
		t.Errorf("conflict should name both values, got %+v", conflict)
	}
}

func TestBind(t *testing.T) {
	set := NewParameterSet()
	if err := set.Extract("select %(a)s, %(b)s, %(c)s, %(d)s", map[string]string{"b": "fallback"}); err != nil {
		t.Fatalf("extract: %v", err)
	}

	form := FormSource(url.Values{"a": {"from-form"}, "b": {""}})
	query := FormSource(url.Values{"a": {"from-query"}, "c": {"qc"}})

	bound := set.Bind(form, query)

	// First source wins
	if got := bound["a"]; got == nil || *got != "from-form" {
		t.Errorf("a = %v, want from-form", got)
	}
	// Empty submitted value falls back to declared default
	if got := bound["b"]; got == nil || *got != "fallback" {
		t.Errorf("b = %v, want fallback", got)
	}
	// Later source consulted when earlier lacks key
	if got := bound["c"]; got == nil || *got != "qc" {
		t.Errorf("c = %v, want qc", got)
	}
	// No source, no default: null sentinel, not empty string
	if got := bound["d"]; got != nil {
		t.Errorf("d = %q, want nil sentinel", *got)
	}
}

func TestRewritePositional(t *testing.T) {
	v := "x"
	values := BoundValues{"a": &v, "b": nil}

	sql, args := RewritePositional("select %(a)s, %(b)s, %(a)s, '100%%'", values)
	if sql != "select $1, $2, $1, '100%'" {
		t.Errorf("rewritten sql = %q", sql)
	}
	if len(args) != 2 {
		t.Fatalf("args = %v, want 2 entries", args)
	}
	if args[0] != "x" {
		t.Errorf("args[0] = %v", args[0])
	}
	if args[1] != nil {
		t.Errorf("args[1] = %v, want nil for SQL NULL", args[1])
	}
}
