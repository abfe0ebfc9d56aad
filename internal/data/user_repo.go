package data

import (
	"database/sql"
	"time"

	"pgdash/internal/core"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser creates a new user with hashed password
func (r *UserRepo) CreateUser(username, passwordHash string, isStaff, isSuperuser bool) (*core.User, error) {
	res, err := r.db.Exec(`INSERT INTO users (username, password_hash, is_staff, is_superuser, is_active, created_at) VALUES (?, ?, ?, ?, 1, CURRENT_TIMESTAMP)`,
		username, passwordHash, boolToInt(isStaff), boolToInt(isSuperuser))
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &core.User{ID: id, Username: username, IsStaff: isStaff, IsSuperuser: isSuperuser, IsActive: true, CreatedAt: time.Now()}, nil
}

// GetUserByUsername retrieves a user by username
func (r *UserRepo) GetUserByUsername(username string) (*core.User, error) {
	return r.scanOne(r.db.QueryRow(`SELECT id, username, password_hash, is_staff, is_superuser, is_active, created_at FROM users WHERE username = ?`, username))
}

func (r *UserRepo) GetByID(id int64) (*core.User, error) {
	return r.scanOne(r.db.QueryRow(`SELECT id, username, password_hash, is_staff, is_superuser, is_active, created_at FROM users WHERE id = ?`, id))
}

func (r *UserRepo) scanOne(row *sql.Row) (*core.User, error) {
	var u core.User
	var isStaff, isSuperuser, isActive int
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &isStaff, &isSuperuser, &isActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.IsStaff = isStaff == 1
	u.IsSuperuser = isSuperuser == 1
	u.IsActive = isActive == 1
	return &u, nil
}

func (r *UserRepo) GetAll() ([]core.User, error) {
	rows, err := r.db.Query(`SELECT id, username, password_hash, is_staff, is_superuser, is_active, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		var isStaff, isSuperuser, isActive int
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &isStaff, &isSuperuser, &isActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.IsStaff = isStaff == 1
		u.IsSuperuser = isSuperuser == 1
		u.IsActive = isActive == 1
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Update(u *core.User) error {
	if u.PasswordHash != "" {
		_, err := r.db.Exec(`UPDATE users SET username=?, password_hash=?, is_staff=?, is_superuser=?, is_active=? WHERE id=?`,
			u.Username, u.PasswordHash, boolToInt(u.IsStaff), boolToInt(u.IsSuperuser), boolToInt(u.IsActive), u.ID)
		return err
	}
	_, err := r.db.Exec(`UPDATE users SET username=?, is_staff=?, is_superuser=?, is_active=? WHERE id=?`,
		u.Username, boolToInt(u.IsStaff), boolToInt(u.IsSuperuser), boolToInt(u.IsActive), u.ID)
	return err
}

func (r *UserRepo) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM users WHERE id=?`, id)
	return err
}

func (r *UserRepo) CountUsers() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
