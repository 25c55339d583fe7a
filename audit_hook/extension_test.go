package audithook_test

import (
	"context"
	"errors"
	"testing"

	audithook "github.com/xraph/bulkpay/audit_hook"
	"github.com/xraph/bulkpay/credit"
	"github.com/xraph/bulkpay/id"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/settle"
	"github.com/xraph/bulkpay/types"
)

func collect() (*[]*audithook.AuditEvent, audithook.RecorderFunc) {
	var events []*audithook.AuditEvent
	return &events, func(_ context.Context, e *audithook.AuditEvent) error {
		events = append(events, e)
		return nil
	}
}

func TestLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	events, rec := collect()
	ext := audithook.New(rec)

	l := &paylist.List{
		ID:        "abc",
		TokenID:   "native",
		Submitter: "alice.near",
		Payments:  []paylist.Record{{Recipient: "a.near", Amount: types.NewAmount(7)}},
	}

	_ = ext.OnStoragePurchased(ctx, &credit.Purchase{ID: id.NewPurchaseID(), Buyer: "alice.near", Records: 1})
	_ = ext.OnListSubmitted(ctx, l)
	_ = ext.OnListApproved(ctx, l, "deposit")
	_ = ext.OnBatchProcessed(ctx, &settle.Batch{ID: id.NewBatchID(), ListID: "abc", Outcome: settle.OutcomeCompleted})
	_ = ext.OnListSettled(ctx, l)

	want := []string{
		audithook.ActionStoragePurchased,
		audithook.ActionListSubmitted,
		audithook.ActionListApproved,
		audithook.ActionBatchProcessed,
		audithook.ActionListSettled,
	}
	if len(*events) != len(want) {
		t.Fatalf("got %d events, want %d", len(*events), len(want))
	}
	for i, e := range *events {
		if e.Action != want[i] {
			t.Errorf("event %d: action %s, want %s", i, e.Action, want[i])
		}
	}
	if got := (*events)[2].Metadata["total"]; got != "7" {
		t.Errorf("approved total = %v, want 7", got)
	}
}

func TestPartialAndFailureEvents(t *testing.T) {
	ctx := context.Background()
	events, rec := collect()
	ext := audithook.New(rec)

	_ = ext.OnBatchProcessed(ctx, &settle.Batch{ListID: "abc", Outcome: settle.OutcomeInterrupted, Error: "rail down"})
	_ = ext.OnDispatchDropped(ctx, rail.Instruction{Kind: rail.KindNative, Recipient: "a.near"}, errors.New("timeout"))

	if len(*events) != 2 {
		t.Fatalf("got %d events, want 2", len(*events))
	}
	if e := (*events)[0]; e.Outcome != audithook.OutcomePartial || e.Reason != "rail down" {
		t.Errorf("interrupted batch: %+v", e)
	}
	if e := (*events)[1]; e.Severity != audithook.SeverityCritical || e.Reason != "timeout" {
		t.Errorf("dropped dispatch: %+v", e)
	}
}

func TestActionFilters(t *testing.T) {
	ctx := context.Background()
	l := &paylist.List{ID: "abc"}

	events, rec := collect()
	only := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionListRejected))
	_ = only.OnListSubmitted(ctx, l)
	_ = only.OnListRejected(ctx, l)
	if len(*events) != 1 || (*events)[0].Action != audithook.ActionListRejected {
		t.Errorf("enabled filter: got %d events", len(*events))
	}

	events, rec = collect()
	without := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionListSubmitted))
	_ = without.OnListSubmitted(ctx, l)
	_ = without.OnListRejected(ctx, l)
	if len(*events) != 1 || (*events)[0].Action != audithook.ActionListRejected {
		t.Errorf("disabled filter: got %d events", len(*events))
	}
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))
	if err := ext.OnListRejected(context.Background(), &paylist.List{ID: "abc"}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
