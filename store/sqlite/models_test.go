package sqlite

import (
	"testing"
	"time"

	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/types"
)

func sampleList() *paylist.List {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &paylist.List{
		Entity:    types.Entity{CreatedAt: now, UpdatedAt: now.Add(time.Minute)},
		ID:        "3f2a",
		TokenID:   "native",
		Submitter: "alice.near",
		Status:    paylist.StatusApproved,
		Payments: []paylist.Record{
			{Recipient: "bob.near", Amount: types.MustParseAmount("340282366920938463463374607431768211455"), Status: paylist.RecordPaid, Reference: 1001},
			{Recipient: "carol.near", Amount: types.NewAmount(7), Status: paylist.RecordPending},
		},
	}
}

func TestListModelRoundTrip(t *testing.T) {
	original := sampleList()

	m, err := toListModel(original)
	if err != nil {
		t.Fatalf("toListModel: %v", err)
	}
	if m.RecordCount != 2 || m.PendingCount != 1 {
		t.Errorf("counts: got %d/%d, want 2/1", m.RecordCount, m.PendingCount)
	}
	if m.Status != "approved" {
		t.Errorf("status: got %q", m.Status)
	}

	got, err := fromListModel(m)
	if err != nil {
		t.Fatalf("fromListModel: %v", err)
	}
	if got.ID != original.ID || got.TokenID != original.TokenID || got.Submitter != original.Submitter {
		t.Errorf("identity fields differ: %+v", got)
	}
	if !got.CreatedAt.Equal(original.CreatedAt) || !got.UpdatedAt.Equal(original.UpdatedAt) {
		t.Errorf("timestamps differ: %v %v", got.CreatedAt, got.UpdatedAt)
	}
	if len(got.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(got.Payments))
	}
	for i := range got.Payments {
		if got.Payments[i] != original.Payments[i] {
			t.Errorf("payment %d: got %+v, want %+v", i, got.Payments[i], original.Payments[i])
		}
	}
}

func TestFromListModelRejectsCorruptPayments(t *testing.T) {
	m, err := toListModel(sampleList())
	if err != nil {
		t.Fatalf("toListModel: %v", err)
	}
	m.Payments = `[{"amount":"-1"}]`

	if _, err := fromListModel(m); err == nil {
		t.Error("expected error decoding corrupt payments")
	}
}
