// Package local is the on-device persistence for saved bills and the
// in-progress draft. It works with no network at all.
package local

import (
	"context"

	"bill-backend/internal/models"
)

// BillStore keeps bills keyed by invoice number, remembering the order in
// which each number was first stored.
type BillStore interface {
	// Get returns nil, nil when no bill has the number
	Get(ctx context.Context, invoiceNumber string) (*models.Bill, error)
	// Upsert replaces an existing bill in place or appends a new one
	Upsert(ctx context.Context, bill models.Bill) error
	// List returns bills oldest first
	List(ctx context.Context) ([]models.Bill, error)
	// Delete is a no-op when the number is unknown
	Delete(ctx context.Context, invoiceNumber string) error
}
