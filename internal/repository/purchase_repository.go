package repository

import (
	"context"

	"github.com/learnhub/purchase-service/internal/models"
)

// PurchaseReceipt is what a committed purchase leaves behind.
type PurchaseReceipt struct {
	NewBalance  int64
	Transaction *models.Transaction
	Entitlement *models.Entitlement
}

// TopupReceipt is what a committed wallet credit leaves behind.
type TopupReceipt struct {
	NewBalance  int64
	Transaction *models.Transaction
}

// PurchaseRepository executes the multi-row wallet mutations as single
// storage transactions. Balance change and ledger row commit together or
// not at all.
type PurchaseRepository interface {
	// ApplyPurchase debits price from the user's wallet conditional on the
	// version read at check time, appends a completed debit-purchase
	// transaction and creates the entitlement. Errors:
	//   ErrUserNotFound        user row vanished
	//   ErrPurchaseConflict    version moved under us
	//   ErrInsufficientBalance balance dropped below price
	//   ErrEntitlementExists   a concurrent call already granted the lesson
	//   ErrStoreUnavailable    the storage transaction could not commit
	ApplyPurchase(ctx context.Context, userID, lessonID, price, version int64) (*PurchaseReceipt, error)

	// ApplyTopup credits amount to the user's wallet conditional on version
	// and appends the completed credit-topup transaction. Errors:
	//   ErrUserNotFound     user row vanished
	//   ErrPurchaseConflict version moved under us
	//   ErrStoreUnavailable the storage transaction could not commit
	ApplyTopup(ctx context.Context, userID, amount, version int64, description string) (*TopupReceipt, error)
}
