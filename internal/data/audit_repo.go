package data

import (
	"database/sql"

	"pgdash/internal/core"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Create(l *core.AuditLog) error {
	res, err := r.db.Exec(`INSERT INTO audit_logs (timestamp, user_id, dashboard_slug, sql_text, duration_ms, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.Timestamp, l.UserID, l.DashboardSlug, l.SQLText, l.DurationMs, l.Status, l.ErrorMessage)
	if err != nil {
		return err
	}
	l.ID, _ = res.LastInsertId()
	return nil
}

func (r *AuditRepo) GetRecent(limit int) ([]core.AuditLog, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, user_id, dashboard_slug, sql_text, duration_ms, status, error_message
		FROM audit_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []core.AuditLog
	for rows.Next() {
		var l core.AuditLog
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.UserID, &l.DashboardSlug, &l.SQLText, &l.DurationMs, &l.Status, &l.ErrorMessage); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
