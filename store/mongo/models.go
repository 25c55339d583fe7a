package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/types"
)

// ==================== Payment list models ====================

type listModel struct {
	grove.BaseModel `grove:"table:bulkpay_lists"`

	ID           string        `grove:"id,pk"         bson:"_id"`
	TokenID      string        `grove:"token_id"      bson:"token_id"`
	Submitter    string        `grove:"submitter"     bson:"submitter"`
	Status       string        `grove:"status"        bson:"status"`
	Payments     []recordModel `grove:"payments"      bson:"payments"`
	PendingCount int           `grove:"pending_count" bson:"pending_count"`
	CreatedAt    time.Time     `grove:"created_at"    bson:"created_at"`
	UpdatedAt    time.Time     `grove:"updated_at"    bson:"updated_at"`
}

// Amounts exceed every BSON integer type and are stored as decimal strings.
type recordModel struct {
	Recipient string `bson:"recipient"`
	Amount    string `bson:"amount"`
	Status    string `bson:"status"`
	Reference int64  `bson:"reference,omitempty"`
}

func toListModel(l *paylist.List) *listModel {
	payments := make([]recordModel, len(l.Payments))
	for i, r := range l.Payments {
		payments[i] = recordModel{
			Recipient: r.Recipient,
			Amount:    r.Amount.String(),
			Status:    string(r.Status),
			Reference: int64(r.Reference), //nolint:gosec // block heights fit in int64
		}
	}

	return &listModel{
		ID:           l.ID,
		TokenID:      l.TokenID,
		Submitter:    l.Submitter,
		Status:       string(l.Status),
		Payments:     payments,
		PendingCount: l.PendingCount(),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func fromListModel(m *listModel) (*paylist.List, error) {
	payments := make([]paylist.Record, len(m.Payments))
	for i, r := range m.Payments {
		amount, err := types.ParseAmount(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("bulkpay/mongo: list %s record %d: %w", m.ID, i, err)
		}
		payments[i] = paylist.Record{
			Recipient: r.Recipient,
			Amount:    amount,
			Status:    paylist.RecordStatus(r.Status),
			Reference: uint64(r.Reference), //nolint:gosec // written from a uint64
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

	Account   string    `grove:"account,pk"  bson:"_id"`
	Credits   int64     `grove:"credits"     bson:"credits"`
	CreatedAt time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"  bson:"updated_at"`
}
