// Package models defines the account models persisted in the database and
// the permissions capability they share.
package models

import "sort"

// Permission is a named capability, addressed as "<app_label>.<codename>".
type Permission struct {
	ID       int64  `json:"id"`
	AppLabel string `json:"app_label"`
	Codename string `json:"codename"`
	Name     string `json:"name"`
}

// Key returns the "<app_label>.<codename>" form used by HasPerm.
func (p Permission) Key() string {
	return p.AppLabel + "." + p.Codename
}

// Group bundles permissions granted to every member account.
type Group struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name" validate:"required,max=150"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// PermissionsMixin supplies superuser status, group membership and
// per-permission checks. Accounts embed it; it stores nothing about the
// account itself.
//
// The checks here ignore whether the account is active. Embedding accounts
// shadow HasPerm, HasPerms and HasModulePerms so inactive accounts have no
// permissions at all.
type PermissionsMixin struct {
	IsSuperuser     bool         `json:"is_superuser"`
	Groups          []Group      `json:"groups,omitempty"`
	UserPermissions []Permission `json:"user_permissions,omitempty"`
}

// GetUserPermissions returns the keys granted directly to the account.
func (p *PermissionsMixin) GetUserPermissions() []string {
	return keys(p.UserPermissions)
}

// GetGroupPermissions returns the keys granted through group membership.
func (p *PermissionsMixin) GetGroupPermissions() []string {
	var all []Permission
	for _, g := range p.Groups {
		all = append(all, g.Permissions...)
	}
	return keys(all)
}

// GetAllPermissions returns direct and group permission keys, sorted and
// without duplicates.
func (p *PermissionsMixin) GetAllPermissions() []string {
	set := make(map[string]struct{})
	for _, k := range p.GetUserPermissions() {
		set[k] = struct{}{}
	}
	for _, k := range p.GetGroupPermissions() {
		set[k] = struct{}{}
	}
	return sortedSet(set)
}

// HasPerm reports whether the account holds perm. Superusers hold every
// permission.
func (p *PermissionsMixin) HasPerm(perm string) bool {
	if p.IsSuperuser {
		return true
	}
	for _, k := range p.GetAllPermissions() {
		if k == perm {
			return true
		}
	}
	return false
}

// HasPerms reports whether the account holds every permission in perms.
func (p *PermissionsMixin) HasPerms(perms ...string) bool {
	for _, perm := range perms {
		if !p.HasPerm(perm) {
			return false
		}
	}
	return true
}

// HasModulePerms reports whether the account holds any permission of the
// given application.
func (p *PermissionsMixin) HasModulePerms(appLabel string) bool {
	if p.IsSuperuser {
		return true
	}
	for _, k := range p.GetAllPermissions() {
		if len(k) > len(appLabel) && k[:len(appLabel)] == appLabel && k[len(appLabel)] == '.' {
			return true
		}
	}
	return false
}

// GroupIDs returns the IDs of the groups the account belongs to.
func (p *PermissionsMixin) GroupIDs() []int64 {
	ids := make([]int64, 0, len(p.Groups))
	for _, g := range p.Groups {
		ids = append(ids, g.ID)
	}
	return ids
}

// UserPermissionIDs returns the IDs of the directly granted permissions.
func (p *PermissionsMixin) UserPermissionIDs() []int64 {
	ids := make([]int64, 0, len(p.UserPermissions))
	for _, perm := range p.UserPermissions {
		ids = append(ids, perm.ID)
	}
	return ids
}

func keys(perms []Permission) []string {
	set := make(map[string]struct{}, len(perms))
	for _, perm := range perms {
		set[perm.Key()] = struct{}{}
	}
	return sortedSet(set)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
