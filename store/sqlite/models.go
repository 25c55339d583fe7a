package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/types"
)

// Payments are kept as JSON text; SQLite has no native JSON column type.
type listModel struct {
	grove.BaseModel `grove:"table:bulkpay_lists"`

	ID           string    `grove:"id,pk"`
	TokenID      string    `grove:"token_id"`
	Submitter    string    `grove:"submitter"`
	Status       string    `grove:"status"`
	Payments     string    `grove:"payments"`
	RecordCount  int       `grove:"record_count"`
	PendingCount int       `grove:"pending_count"`
	CreatedAt    time.Time `grove:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"`
}

func toListModel(l *paylist.List) (*listModel, error) {
	payments, err := json.Marshal(l.Payments)
	if err != nil {
		return nil, fmt.Errorf("encode payments: %w", err)
	}

	return &listModel{
		ID:           l.ID,
		TokenID:      l.TokenID,
		Submitter:    l.Submitter,
		Status:       string(l.Status),
		Payments:     string(payments),
		RecordCount:  len(l.Payments),
		PendingCount: l.PendingCount(),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}, nil
}

func fromListModel(m *listModel) (*paylist.List, error) {
	var payments []paylist.Record
	if m.Payments != "" {
		if err := json.Unmarshal([]byte(m.Payments), &payments); err != nil {
			return nil, fmt.Errorf("decode payments of %s: %w", m.ID, err)
		}
	}

	return &paylist.List{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        m.ID,
		TokenID:   m.TokenID,
		Submitter: m.Submitter,
		Status:    paylist.Status(m.Status),
		Payments:  payments,
	}, nil
}

type creditModel struct {
	grove.BaseModel `grove:"table:bulkpay_credits"`

	Account   string    `grove:"account,pk"`
	Credits   int64     `grove:"credits"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}
