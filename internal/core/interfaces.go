package core

// DashboardRepository defines storage operations for dashboards and their queries
type DashboardRepository interface {
	Create(dashboard *Dashboard) error
	GetBySlug(slug string) (*Dashboard, error)
	GetAll() ([]Dashboard, error)
	Update(dashboard *Dashboard) error
	Delete(id int64) error
}

// UserRepository defines storage operations for users
type UserRepository interface {
	CreateUser(username, passwordHash string, isStaff, isSuperuser bool) (*User, error)
	GetUserByUsername(username string) (*User, error)
	GetByID(id int64) (*User, error)
	GetAll() ([]User, error)
	Update(user *User) error
	Delete(id int64) error
	CountUsers() (int, error)
}

// GroupRepository defines storage operations for groups and memberships
type GroupRepository interface {
	Create(group *Group) error
	GetAll() ([]Group, error)
	GetByID(id int64) (*Group, error)
	GroupIDsForUser(userID int64) ([]int64, error)
	AddMember(groupID, userID int64) error
	RemoveMember(groupID, userID int64) error
}

// AuditRepository defines storage operations for query audit logs
type AuditRepository interface {
	Create(log *AuditLog) error
	GetRecent(limit int) ([]AuditLog, error)
}
