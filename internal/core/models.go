package core

import (
	"time"
)

// ViewPolicy controls who may see a dashboard.
type ViewPolicy string

const (
	ViewPrivate   ViewPolicy = "private"
	ViewPublic    ViewPolicy = "public"
	ViewUnlisted  ViewPolicy = "unlisted"
	ViewLoggedIn  ViewPolicy = "loggedin"
	ViewGroup     ViewPolicy = "group"
	ViewStaff     ViewPolicy = "staff"
	ViewSuperuser ViewPolicy = "superuser"
)

// EditPolicy controls who may modify a dashboard. There is deliberately no
// public or unlisted edit policy.
type EditPolicy string

const (
	EditPrivate   EditPolicy = "private"
	EditLoggedIn  EditPolicy = "loggedin"
	EditGroup     EditPolicy = "group"
	EditStaff     EditPolicy = "staff"
	EditSuperuser EditPolicy = "superuser"
)

var ViewPolicies = map[ViewPolicy]bool{
	ViewPrivate:   true,
	ViewPublic:    true,
	ViewUnlisted:  true,
	ViewLoggedIn:  true,
	ViewGroup:     true,
	ViewStaff:     true,
	ViewSuperuser: true,
}

var EditPolicies = map[EditPolicy]bool{
	EditPrivate:   true,
	EditLoggedIn:  true,
	EditGroup:     true,
	EditStaff:     true,
	EditSuperuser: true,
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Dashboard struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"` // Markdown allowed
	OwnedByID   *int64     `json:"owned_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ViewPolicy  ViewPolicy `json:"view_policy"`
	EditPolicy  EditPolicy `json:"edit_policy"`
	ViewGroupID *int64     `json:"view_group"`
	EditGroupID *int64     `json:"edit_group"`

	Queries []DashboardQuery `json:"queries"`
}

// DashboardQuery belongs to exactly one dashboard and is ordered within it by
// Position, not by creation order.
type DashboardQuery struct {
	ID               int64  `json:"id"`
	DashboardID      int64  `json:"dashboard_id"`
	SQL              string `json:"sql"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	TemplateOverride string `json:"template_override"`
	Settings         string `json:"settings"` // JSON blob, may declare parameter defaults
	Position         int    `json:"position"`
}

type AuditLog struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	UserID        int64     `json:"user_id"`
	DashboardSlug string    `json:"dashboard_slug"`
	SQLText       string    `json:"sql_text"`
	DurationMs    int64     `json:"duration_ms"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message"`
}
