package data

import (
	"database/sql"

	"pgdash/internal/core"
)

type GroupRepo struct {
	db *sql.DB
}

func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) Create(g *core.Group) error {
	res, err := r.db.Exec(`INSERT INTO groups (name) VALUES (?)`, g.Name)
	if err != nil {
		return err
	}
	g.ID, _ = res.LastInsertId()
	return nil
}

func (r *GroupRepo) GetAll() ([]core.Group, error) {
	rows, err := r.db.Query(`SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []core.Group
	for rows.Next() {
		var g core.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *GroupRepo) GetByID(id int64) (*core.Group, error) {
	var g core.Group
	err := r.db.QueryRow(`SELECT id, name FROM groups WHERE id = ?`, id).Scan(&g.ID, &g.Name)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GroupIDsForUser returns the ids of every group the user belongs to
func (r *GroupRepo) GroupIDsForUser(userID int64) ([]int64, error) {
	rows, err := r.db.Query(`SELECT group_id FROM user_groups WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *GroupRepo) AddMember(groupID, userID int64) error {
	_, err := r.db.Exec(`INSERT OR IGNORE INTO user_groups (user_id, group_id) VALUES (?, ?)`, userID, groupID)
	return err
}

func (r *GroupRepo) RemoveMember(groupID, userID int64) error {
	_, err := r.db.Exec(`DELETE FROM user_groups WHERE user_id = ? AND group_id = ?`, userID, groupID)
	return err
}
