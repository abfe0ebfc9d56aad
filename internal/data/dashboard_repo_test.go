package data

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"pgdash/internal/core"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "meta.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDashboardRepoCreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewDashboardRepo(db)

	d := &core.Dashboard{
		Slug:       "signups",
		Title:      "Signups",
		ViewPolicy: core.ViewPrivate,
		EditPolicy: core.EditPrivate,
		Queries: []core.DashboardQuery{
			{SQL: "select 1", Title: "first"},
			{SQL: "select 2", Title: "second"},
			{SQL: "select 3", Title: "third"},
		},
	}
	if err := repo.Create(d); err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == 0 {
		t.Error("create did not assign an id")
	}

	got, err := repo.GetBySlug("signups")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Signups" || got.ViewPolicy != core.ViewPrivate {
		t.Errorf("got %+v", got)
	}
	if len(got.Queries) != 3 {
		t.Fatalf("queries = %d, want 3", len(got.Queries))
	}
	for i, want := range []string{"select 1", "select 2", "select 3"} {
		if got.Queries[i].SQL != want {
			t.Errorf("query %d = %q, want %q", i, got.Queries[i].SQL, want)
		}
		if got.Queries[i].Position != i {
			t.Errorf("query %d position = %d", i, got.Queries[i].Position)
		}
	}
}

func TestDashboardRepoGetBySlugMissing(t *testing.T) {
	db := testDB(t)
	repo := NewDashboardRepo(db)

	_, err := repo.GetBySlug("nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("want sql.ErrNoRows, got %v", err)
	}
}

func TestDashboardRepoUpdateReplacesQueries(t *testing.T) {
	db := testDB(t)
	repo := NewDashboardRepo(db)

	d := &core.Dashboard{
		Slug:       "report",
		ViewPolicy: core.ViewPrivate,
		EditPolicy: core.EditPrivate,
		Queries:    []core.DashboardQuery{{SQL: "select 1"}, {SQL: "select 2"}},
	}
	if err := repo.Create(d); err != nil {
		t.Fatalf("create: %v", err)
	}

	d.Title = "Renamed"
	d.ViewPolicy = core.ViewPublic
	d.Queries = []core.DashboardQuery{{SQL: "select 42"}}
	if err := repo.Update(d); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetBySlug("report")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Renamed" || got.ViewPolicy != core.ViewPublic {
		t.Errorf("got %+v", got)
	}
	if len(got.Queries) != 1 || got.Queries[0].SQL != "select 42" {
		t.Errorf("queries = %+v", got.Queries)
	}
}

func TestDashboardRepoDeleteCascades(t *testing.T) {
	db := testDB(t)
	repo := NewDashboardRepo(db)

	d := &core.Dashboard{
		Slug:       "doomed",
		ViewPolicy: core.ViewPrivate,
		EditPolicy: core.EditPrivate,
		Queries:    []core.DashboardQuery{{SQL: "select 1"}},
	}
	if err := repo.Create(d); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM dashboard_queries WHERE dashboard_id = ?`, d.ID).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("orphaned queries after delete: %d", n)
	}
}

func TestGroupMembership(t *testing.T) {
	db := testDB(t)
	users := NewUserRepo(db)
	groups := NewGroupRepo(db)

	user, err := users.CreateUser("alice", "hash", false, false)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	g := &core.Group{Name: "analysts"}
	if err := groups.Create(g); err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := groups.AddMember(g.ID, user.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	// Adding twice is a no-op
	if err := groups.AddMember(g.ID, user.ID); err != nil {
		t.Fatalf("re-add member: %v", err)
	}

	ids, err := groups.GroupIDsForUser(user.ID)
	if err != nil {
		t.Fatalf("group ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != g.ID {
		t.Errorf("ids = %v, want [%d]", ids, g.ID)
	}

	if err := groups.RemoveMember(g.ID, user.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	ids, err = groups.GroupIDsForUser(user.ID)
	if err != nil {
		t.Fatalf("group ids: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids after removal = %v", ids)
	}
}
