package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/types"
)

// ==================== Payment list models ====================

type listModel struct {
	grove.BaseModel `grove:"table:bulkpay_lists"`

	ID           string          `grove:"id,pk"`
	TokenID      string          `grove:"token_id"`
	Submitter    string          `grove:"submitter"`
	Status       string          `grove:"status"`
	Payments     json.RawMessage `grove:"payments,type:jsonb"`
	RecordCount  int             `grove:"record_count"`
	PendingCount int             `grove:"pending_count"`
	CreatedAt    time.Time       `grove:"created_at"`
	UpdatedAt    time.Time       `grove:"updated_at"`
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
		Payments:     payments,
		RecordCount:  len(l.Payments),
		PendingCount: l.PendingCount(),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}, nil
}

func fromListModel(m *listModel) (*paylist.List, error) {
	var payments []paylist.Record
	if len(m.Payments) > 0 {
		if err := json.Unmarshal(m.Payments, &payments); err != nil {
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

// ==================== Credit models ====================

type creditModel struct {
	grove.BaseModel `grove:"table:bulkpay_credits"`

	Account   string    `grove:"account,pk"`
	Credits   int64     `grove:"credits"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}
