package models

import "time"

// Transaction is a signed ledger entry against a user's wallet. Debits carry
// a negative amount. Rows are immutable once completed or failed.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	LessonID    int64           `json:"lesson_id,omitempty"`
	Amount      int64           `json:"amount"`
	Kind        TransactionKind `json:"kind"`
	Description string          `json:"description,omitempty"`
	Status      StatusType      `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TransactionKind string

const (
	KindDebitPurchase TransactionKind = "debit-purchase"
	KindCreditTopup   TransactionKind = "credit-topup"
	KindRefund        TransactionKind = "refund"
)

type StatusType string

const (
	StatusPending   StatusType = "pending"
	StatusCompleted StatusType = "completed"
	StatusFailed    StatusType = "failed"
)
