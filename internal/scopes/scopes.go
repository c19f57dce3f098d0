// Package scopes selects users by their membership flags.
//
// The gorm scopes build queries; the Filter functions apply the same rules to
// users already in memory.
package scopes

import (
	"gorm.io/gorm"

	"tap_system/internal/domain"
)

// Members selects every user but the koelkast, in creation order.
func Members(db *gorm.DB) *gorm.DB {
	return CreationOrder(OnlyMembers(db))
}

// Publik selects users that are not private, in creation order.
func Publik(db *gorm.DB) *gorm.DB {
	return CreationOrder(OnlyPublik(db))
}

// OnlyMembers filters out the koelkast without ordering.
func OnlyMembers(db *gorm.DB) *gorm.DB {
	return db.Where("koelkast = ?", false)
}

// OnlyPublik filters out private users without ordering.
func OnlyPublik(db *gorm.DB) *gorm.DB {
	return db.Where("private = ?", false)
}

// All selects every user.
func All(db *gorm.DB) *gorm.DB { return db }

// CreationOrder is the display order of every listing.
func CreationOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// ByFrecency ranks users by frecency, most active first.
func ByFrecency(db *gorm.DB) *gorm.DB {
	return db.Order("frecency DESC, id ASC")
}

// Named resolves a filter from a request. ok is false for unknown names.
func Named(name string) (fn func(*gorm.DB) *gorm.DB, ok bool) {
	switch name {
	case "", "members":
		return OnlyMembers, true
	case "publik":
		return OnlyPublik, true
	case "all":
		return All, true
	}
	return nil, false
}

// IsMember reports whether u belongs in Members.
func IsMember(u domain.User) bool { return !u.Koelkast }

// IsPublik reports whether u belongs in Publik.
func IsPublik(u domain.User) bool { return !u.Private }

// FilterMembers keeps the members of users, preserving order.
func FilterMembers(users []domain.User) []domain.User { return filter(users, IsMember) }

// FilterPublik keeps the public users, preserving order.
func FilterPublik(users []domain.User) []domain.User { return filter(users, IsPublik) }

func filter(users []domain.User, keep func(domain.User) bool) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}
