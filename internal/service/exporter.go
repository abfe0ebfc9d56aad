package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"pgdash/internal/core"
)

type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportTSV ExportFormat = "tsv"
)

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == ExportTSV {
		return "text/tab-separated-values"
	}
	return "text/csv"
}

// ExportFilename derives an attachment filename from the SQL text.
func ExportFilename(sqlText string, format ExportFormat) string {
	slug := core.Slugify(sqlText)
	if len(slug) > 64 {
		slug = slug[:64]
	}
	if slug == "" {
		slug = "export"
	}
	return slug + "." + string(format)
}

// ExportStreamer streams full result sets as delimited text without ever
// materializing them in memory. It holds a server-side cursor and fetches in
// bounded batches, flushing each batch to the consumer as it arrives.
type ExportStreamer struct {
	db        *sql.DB
	batchSize int
}

func NewExportStreamer(db *sql.DB, batchSize int) *ExportStreamer {
	if batchSize <= 0 {
		batchSize = 2000
	}
	return &ExportStreamer{db: db, batchSize: batchSize}
}

// Stream executes sqlText and writes a header row followed by every data row
// to w. Single-pass and not restartable. The cursor and its transaction are
// released even when the consumer aborts mid-stream or the query errors
// after partial output.
func (s *ExportStreamer) Stream(ctx context.Context, w io.Writer, sqlText string, values core.BoundValues, format ExportFormat) error {
	trimmed, err := GuardSingleStatement(sqlText)
	if err != nil {
		return err
	}
	rewritten, args := core.RewritePositional(trimmed, values)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT 1"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DECLARE dashboard_export NO SCROLL CURSOR FOR "+rewritten, args...); err != nil {
		return err
	}
	defer tx.ExecContext(context.Background(), "CLOSE dashboard_export")

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if format == ExportTSV {
		cw.Comma = '\t'
	}

	fetch := fmt.Sprintf("FETCH FORWARD %d FROM dashboard_export", s.batchSize)
	wroteHeader := false
	for {
		n, err := s.writeBatch(ctx, tx, cw, fetch, &wroteHeader)
		if err != nil {
			return err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		if n < s.batchSize {
			return nil
		}
	}
}

func (s *ExportStreamer) writeBatch(ctx context.Context, tx *sql.Tx, cw *csv.Writer, fetch string, wroteHeader *bool) (int, error) {
	rows, err := tx.QueryContext(ctx, fetch)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	if !*wroteHeader {
		if err := cw.Write(columns); err != nil {
			return 0, err
		}
		*wroteHeader = true
	}

	n := 0
	record := make([]string, len(columns))
	for rows.Next() {
		vals := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		for i, v := range vals {
			record[i] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func formatCell(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case time.Time:
		return c.Format(time.RFC3339)
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprint(c)
	}
}
