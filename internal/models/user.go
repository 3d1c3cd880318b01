package models

import "time"

type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// CanBypassPayment reports whether the role unlocks lessons without a debit.
func (r Role) CanBypassPayment() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User carries the wallet state. Version is the optimistic-concurrency token:
// every balance mutation supplies the version it read and bumps it by one.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	Balance      int64
	Version      int64
	CreatedAt    time.Time
}
