package repository

import (
	"context"

	"github.com/learnhub/purchase-service/internal/models"
)

// TransactionRepository is the read side of the ledger. Ledger rows are only
// written inside PurchaseRepository transactions, together with the balance
// change they describe.
type TransactionRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error)
}
