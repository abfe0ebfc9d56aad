package service

import (
	"context"
	"errors"
	"testing"

	"pgdash/internal/core"
)

func TestGuardSingleStatement(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    string
		wantErr bool
	}{
		{"Plain statement", "select 1", "select 1", false},
		{"Trailing semicolon stripped", "select 1;", "select 1", false},
		{"Several trailing semicolons", "select 1;;;", "select 1", false},
		{"Trailing semicolon with spaces", "select 1 ;  ", "select 1", false},
		{"Interleaved trailing semicolons and whitespace", "select 1 ; ;\n;  ", "select 1", false},
		{"Embedded semicolon rejected", "select 1; drop table users", "", true},
		{"Semicolon in the middle rejected", "select ';' ; select 2", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GuardSingleStatement(tt.sql)
			if tt.wantErr {
				if !errors.Is(err, core.ErrMultiStatement) {
					t.Fatalf("expected ErrMultiStatement, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecuteErrorResultCarriesDuration(t *testing.T) {
	// A multi-statement rejection never reaches the database, so a nil pool
	// is safe; even this earliest failure must report elapsed time.
	e := NewQueryExecutor(nil, 0)
	res := e.Execute(context.Background(), "select 1; drop table users", nil, 10)
	if res.Error == "" {
		t.Fatal("expected an error result")
	}
	if res.Duration <= 0 {
		t.Errorf("error result duration = %v, want > 0", res.Duration)
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		sql    string
		format ExportFormat
		want   string
	}{
		{"select count(*) from signups", ExportCSV, "select-count-from-signups.csv"},
		{"select 1", ExportTSV, "select-1.tsv"},
		{"", ExportCSV, "export.csv"},
		{"!!!", ExportCSV, "export.csv"},
	}
	for _, tt := range tests {
		if got := ExportFilename(tt.sql, tt.format); got != tt.want {
			t.Errorf("ExportFilename(%q, %q) = %q, want %q", tt.sql, tt.format, got, tt.want)
		}
	}
}

func TestExportFormatContentType(t *testing.T) {
	if got := ExportCSV.ContentType(); got != "text/csv" {
		t.Errorf("csv content type = %q", got)
	}
	if got := ExportTSV.ContentType(); got != "text/tab-separated-values" {
		t.Errorf("tsv content type = %q", got)
	}
}
