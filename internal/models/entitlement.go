package models

import "time"

// Entitlement records that a user was granted access to a lesson, and which
// ledger transaction paid for it. At most one exists per (user, lesson) pair.
type Entitlement struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	LessonID      int64     `json:"lesson_id"`
	TransactionID int64     `json:"transaction_id"`
	GrantedAt     time.Time `json:"granted_at"`
}
