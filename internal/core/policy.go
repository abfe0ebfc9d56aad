package core

import (
	"sort"
)

// Principal is the requesting identity a policy decision is made against.
// The zero value is an anonymous principal.
type Principal struct {
	UserID        int64
	Username      string
	Authenticated bool
	IsStaff       bool
	IsSuperuser   bool
	GroupIDs      []int64
}

func (p Principal) inGroup(groupID *int64) bool {
	if groupID == nil {
		return false
	}
	for _, id := range p.GroupIDs {
		if id == *groupID {
			return true
		}
	}
	return false
}

func (p Principal) owns(d *Dashboard) bool {
	return p.Authenticated && d.OwnedByID != nil && *d.OwnedByID == p.UserID
}

// CanExecuteSQL reports whether the principal holds the execute-SQL
// capability required by the ad-hoc query surface.
func (p Principal) CanExecuteSQL() bool {
	return p.Authenticated && (p.IsStaff || p.IsSuperuser)
}

// AccessDecision is the outcome of one policy check plus whether the
// response carrying it must be kept out of shared caches.
type AccessDecision struct {
	Allowed      bool
	CachePrivate bool
}

// CanView evaluates the view policy for a dashboard. The owner check always
// comes first; after that the first matching policy rule wins.
func CanView(p Principal, d *Dashboard) bool {
	if p.owns(d) {
		return true
	}
	switch d.ViewPolicy {
	case ViewPublic, ViewUnlisted:
		return true
	case ViewLoggedIn:
		return p.Authenticated
	case ViewGroup:
		return p.Authenticated && p.inGroup(d.ViewGroupID)
	case ViewStaff:
		return p.Authenticated && p.IsStaff
	case ViewSuperuser:
		return p.Authenticated && p.IsSuperuser
	}
	return false
}

// CanEdit evaluates the edit policy for a dashboard. Superusers bypass the
// policy table entirely.
func CanEdit(p Principal, d *Dashboard) bool {
	if !p.Authenticated {
		return false
	}
	if p.IsSuperuser {
		return true
	}
	if p.owns(d) {
		return true
	}
	switch d.EditPolicy {
	case EditLoggedIn:
		return true
	case EditGroup:
		return p.inGroup(d.EditGroupID)
	case EditStaff:
		return p.IsStaff
	case EditSuperuser:
		return p.IsSuperuser
	}
	return false
}

// ViewDecision wraps CanView with the cacheability of the response: anything
// principal-specific (a non-public dashboard, or any authenticated view) must
// not be stored by shared caches.
func ViewDecision(p Principal, d *Dashboard) AccessDecision {
	private := p.Authenticated || (d.ViewPolicy != ViewPublic && d.ViewPolicy != ViewUnlisted)
	return AccessDecision{Allowed: CanView(p, d), CachePrivate: private}
}

// VisibleTo filters dashboards down to those the principal may view,
// de-duplicated by slug even when a dashboard matches several inclusion rules.
// Owned dashboards come first, then the rest, secondarily ordered by slug.
// Unlisted dashboards stay out of listings unless the principal owns them.
func VisibleTo(p Principal, dashboards []Dashboard) []Dashboard {
	var out []Dashboard
	seen := map[string]bool{}
	for _, d := range dashboards {
		d := d
		if seen[d.Slug] {
			continue
		}
		if d.ViewPolicy == ViewUnlisted && !p.owns(&d) {
			continue
		}
		if CanView(p, &d) {
			seen[d.Slug] = true
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := p.owns(&out[i]), p.owns(&out[j])
		if oi != oj {
			return oi
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// EditableBy filters dashboards down to those the principal may edit,
// de-duplicated by slug and ordered by slug.
func EditableBy(p Principal, dashboards []Dashboard) []Dashboard {
	var out []Dashboard
	seen := map[string]bool{}
	for _, d := range dashboards {
		d := d
		if seen[d.Slug] {
			continue
		}
		if CanEdit(p, &d) {
			seen[d.Slug] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
