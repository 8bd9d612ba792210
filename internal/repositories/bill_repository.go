package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBillNotFound is returned by Get when no row has the invoice number
var ErrBillNotFound = errors.New("bill not found")

type BillRepository struct {
	DB *pgxpool.Pool
}

func NewBillRepository(db *pgxpool.Pool) *BillRepository {
	return &BillRepository{DB: db}
}

// Upsert stores the bill as JSON under its invoice number. The last write wins.
func (r *BillRepository) Upsert(ctx context.Context, bill models.Bill) error {
	data, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("encode bill: %w", err)
	}

	_, err = r.DB.Exec(ctx,
		`INSERT INTO bills (invoice_number, data, yaadro_sent_at, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (invoice_number) DO UPDATE
		 SET data = EXCLUDED.data,
		     yaadro_sent_at = EXCLUDED.yaadro_sent_at,
		     updated_at = NOW()`,
		bill.InvoiceNumber, string(data), bill.YaadroSentAt,
	)
	if err != nil {
		return fmt.Errorf("upsert bill %s: %w", bill.InvoiceNumber, err)
	}
	return nil
}

// Get loads one bill by invoice number
func (r *BillRepository) Get(ctx context.Context, invoiceNumber string) (*models.Bill, error) {
	var data []byte
	err := r.DB.QueryRow(ctx,
		`SELECT data FROM bills WHERE invoice_number = $1`, invoiceNumber,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bill %s: %w", invoiceNumber, err)
	}

	bill, err := billing.NormalizeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("decode bill %s: %w", invoiceNumber, err)
	}
	return &bill, nil
}
