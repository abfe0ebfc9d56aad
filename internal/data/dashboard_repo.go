package data

import (
	"database/sql"

	"pgdash/internal/core"
)

type DashboardRepo struct {
	db *sql.DB
}

func NewDashboardRepo(db *sql.DB) *DashboardRepo {
	return &DashboardRepo{db: db}
}

// Create inserts a dashboard and its ordered queries in one transaction
func (r *DashboardRepo) Create(d *core.Dashboard) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO dashboards (slug, title, description, owned_by, view_policy, edit_policy, view_group, edit_group)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Slug, d.Title, d.Description, d.OwnedByID, string(d.ViewPolicy), string(d.EditPolicy), d.ViewGroupID, d.EditGroupID)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	d.ID = id

	for i := range d.Queries {
		q := &d.Queries[i]
		q.DashboardID = id
		q.Position = i
		qres, err := tx.Exec(`INSERT INTO dashboard_queries (dashboard_id, sql_text, title, description, template_override, settings, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.DashboardID, q.SQL, q.Title, q.Description, q.TemplateOverride, q.Settings, q.Position)
		if err != nil {
			return err
		}
		q.ID, _ = qres.LastInsertId()
	}

	return tx.Commit()
}

func (r *DashboardRepo) GetBySlug(slug string) (*core.Dashboard, error) {
	var d core.Dashboard
	var viewPolicy, editPolicy string
	err := r.db.QueryRow(`SELECT id, slug, title, description, owned_by, created_at, view_policy, edit_policy, view_group, edit_group
		FROM dashboards WHERE slug = ?`, slug).
		Scan(&d.ID, &d.Slug, &d.Title, &d.Description, &d.OwnedByID, &d.CreatedAt, &viewPolicy, &editPolicy, &d.ViewGroupID, &d.EditGroupID)
	if err != nil {
		return nil, err
	}
	d.ViewPolicy = core.ViewPolicy(viewPolicy)
	d.EditPolicy = core.EditPolicy(editPolicy)

	if err := r.loadQueries(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DashboardRepo) loadQueries(d *core.Dashboard) error {
	rows, err := r.db.Query(`SELECT id, dashboard_id, sql_text, title, description, template_override, settings, position
		FROM dashboard_queries WHERE dashboard_id = ? ORDER BY position, id`, d.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q core.DashboardQuery
		if err := rows.Scan(&q.ID, &q.DashboardID, &q.SQL, &q.Title, &q.Description, &q.TemplateOverride, &q.Settings, &q.Position); err != nil {
			return err
		}
		d.Queries = append(d.Queries, q)
	}
	return rows.Err()
}

// GetAll returns all dashboards without their queries, for listing and
// policy filtering
func (r *DashboardRepo) GetAll() ([]core.Dashboard, error) {
	rows, err := r.db.Query(`SELECT id, slug, title, description, owned_by, created_at, view_policy, edit_policy, view_group, edit_group
		FROM dashboards ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dashboards []core.Dashboard
	for rows.Next() {
		var d core.Dashboard
		var viewPolicy, editPolicy string
		if err := rows.Scan(&d.ID, &d.Slug, &d.Title, &d.Description, &d.OwnedByID, &d.CreatedAt, &viewPolicy, &editPolicy, &d.ViewGroupID, &d.EditGroupID); err != nil {
			return nil, err
		}
		d.ViewPolicy = core.ViewPolicy(viewPolicy)
		d.EditPolicy = core.EditPolicy(editPolicy)
		dashboards = append(dashboards, d)
	}
	return dashboards, rows.Err()
}

// Update rewrites a dashboard's attributes and replaces its query set
func (r *DashboardRepo) Update(d *core.Dashboard) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE dashboards SET slug=?, title=?, description=?, owned_by=?, view_policy=?, edit_policy=?, view_group=?, edit_group=? WHERE id=?`,
		d.Slug, d.Title, d.Description, d.OwnedByID, string(d.ViewPolicy), string(d.EditPolicy), d.ViewGroupID, d.EditGroupID, d.ID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM dashboard_queries WHERE dashboard_id=?`, d.ID); err != nil {
		return err
	}
	for i := range d.Queries {
		q := &d.Queries[i]
		q.DashboardID = d.ID
		q.Position = i
		qres, err := tx.Exec(`INSERT INTO dashboard_queries (dashboard_id, sql_text, title, description, template_override, settings, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.DashboardID, q.SQL, q.Title, q.Description, q.TemplateOverride, q.Settings, q.Position)
		if err != nil {
			return err
		}
		q.ID, _ = qres.LastInsertId()
	}

	return tx.Commit()
}

// Delete removes a dashboard; its queries cascade
func (r *DashboardRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM dashboards WHERE id=?`, id)
	return err
}
