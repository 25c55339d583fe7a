package bulkpay_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/paylist"
	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/settle"
	"github.com/xraph/bulkpay/store/memory"
	"github.com/xraph/bulkpay/types"
)

const (
	alice  = "alice.near"
	system = "bulk-payment.near"
)

type fixture struct {
	engine   *bulkpay.Engine
	store    *memory.Store
	recorder *rail.Recorder
	events   *eventLog
}

func newFixture(t *testing.T, opts ...bulkpay.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		recorder: rail.NewRecorder(),
		events:   &eventLog{},
	}
	base := []bulkpay.Option{
		bulkpay.WithDispatcher(f.recorder),
		bulkpay.WithSystemIdentity(system),
		bulkpay.WithPlugin(f.events),
	}
	f.engine = bulkpay.New(f.store, append(base, opts...)...)
	require.NoError(t, f.engine.Start(context.Background()))
	return f
}

func (f *fixture) buy(t *testing.T, account string, n uint64) {
	t.Helper()
	cost, err := f.engine.Quote(n)
	require.NoError(t, err)
	_, err = f.engine.BuyStorage(context.Background(), account, "", n, cost)
	require.NoError(t, err)
}

func payments(n int) []bulkpay.Payment {
	out := make([]bulkpay.Payment, n)
	for i := range out {
		out[i] = bulkpay.Payment{Recipient: fmt.Sprintf("r%03d.near", i), Amount: bulkpay.NewAmount(uint64(100 + i))}
	}
	return out
}

func total(ps []bulkpay.Payment) types.Amount {
	sum := types.ZeroAmount
	for _, p := range ps {
		sum, _ = sum.Add(p.Amount)
	}
	return sum
}

func (f *fixture) submit(t *testing.T, tokenID string, ps []bulkpay.Payment) string {
	t.Helper()
	listID := bulkpay.ComputeListID(alice, tokenID, ps)
	_, err := f.engine.Submit(context.Background(), bulkpay.SubmitInput{
		ListID:    listID,
		TokenID:   tokenID,
		Payments:  ps,
		Submitter: alice,
		Caller:    alice,
	})
	require.NoError(t, err)
	return listID
}

func (f *fixture) approved(t *testing.T, tokenID string, n int) string {
	t.Helper()
	f.buy(t, alice, uint64(n))
	ps := payments(n)
	listID := f.submit(t, tokenID, ps)
	require.NoError(t, f.engine.Approve(context.Background(), listID, alice, total(ps)))
	return listID
}

// eventLog records lifecycle hooks in order.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) Name() string { return "event-log" }

func (l *eventLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *eventLog) count(prefix string) int {
	n := 0
	for _, e := range l.all() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (l *eventLog) OnListSubmitted(_ context.Context, pl *paylist.List) error {
	l.add("submitted:" + pl.ID)
	return nil
}

func (l *eventLog) OnListApproved(_ context.Context, pl *paylist.List, via string) error {
	l.add("approved:" + via)
	return nil
}

func (l *eventLog) OnListRejected(_ context.Context, pl *paylist.List) error {
	l.add("rejected:" + pl.ID)
	return nil
}

func (l *eventLog) OnBatchProcessed(_ context.Context, b *settle.Batch) error {
	l.add(fmt.Sprintf("batch:%s:%d", b.Outcome, b.Dispatched))
	return nil
}

func (l *eventLog) OnListSettled(_ context.Context, pl *paylist.List) error {
	l.add("settled:" + pl.ID)
	return nil
}

// ──────────────────────────────────────────────────
// Credits
// ──────────────────────────────────────────────────

func TestQuote(t *testing.T) {
	f := newFixture(t)

	got, err := f.engine.Quote(10)
	require.NoError(t, err)
	assert.Equal(t, "23760000000000000000000", got.String())

	_, err = f.engine.Quote(0)
	assert.ErrorIs(t, err, bulkpay.ErrInvalidInput)

	_, err = f.engine.Quote(1 << 62)
	assert.ErrorIs(t, err, bulkpay.ErrOverflow)
}

func TestBuyStorageExactDeposit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cost, err := f.engine.Quote(5)
	require.NoError(t, err)
	one := types.NewAmount(1)
	over, err := cost.Add(one)
	require.NoError(t, err)
	under, err := f.engine.Quote(4)
	require.NoError(t, err)

	for _, attached := range []types.Amount{under, over, types.ZeroAmount} {
		_, err := f.engine.BuyStorage(ctx, alice, "", 5, attached)
		var mismatch *bulkpay.ValueMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.ErrorIs(t, err, bulkpay.ErrExactValueMismatch)
		assert.Equal(t, cost.String(), mismatch.Expected)
		assert.Equal(t, attached.String(), mismatch.Actual)
	}

	credits, err := f.engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, credits)

	p, err := f.engine.BuyStorage(ctx, alice, "", 5, cost)
	require.NoError(t, err)
	assert.Equal(t, alice, p.Beneficiary)
	assert.Equal(t, uint64(5), p.Balance)
	assert.Equal(t, "pur", string(p.ID.Prefix()))
}

func TestBuyStorageForBeneficiary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cost, err := f.engine.Quote(3)
	require.NoError(t, err)
	_, err = f.engine.BuyStorage(ctx, "payer.near", alice, 3, cost)
	require.NoError(t, err)

	got, err := f.engine.ViewCredits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got)

	got, err = f.engine.ViewCredits(ctx, "payer.near")
	require.NoError(t, err)
	assert.Zero(t, got)
}

// ──────────────────────────────────────────────────
// Submission
// ──────────────────────────────────────────────────

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 10)

	good := payments(2)
	goodID := bulkpay.ComputeListID(alice, "native", good)

	tests := []struct {
		name string
		in   bulkpay.SubmitInput
	}{
		{"empty payments", bulkpay.SubmitInput{ListID: goodID, TokenID: "native", Submitter: alice, Caller: alice}},
		{"malformed id", bulkpay.SubmitInput{ListID: "abc", TokenID: "native", Payments: good, Submitter: alice, Caller: alice}},
		{"empty token", bulkpay.SubmitInput{ListID: goodID, Payments: good, Submitter: alice, Caller: alice}},
		{"empty recipient", bulkpay.SubmitInput{ListID: goodID, TokenID: "native", Payments: []bulkpay.Payment{{Amount: bulkpay.NewAmount(1)}}, Submitter: alice, Caller: alice}},
		{"zero amount", bulkpay.SubmitInput{ListID: goodID, TokenID: "native", Payments: []bulkpay.Payment{{Recipient: "bob.near"}}, Submitter: alice, Caller: alice}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Submit(ctx, tt.in)
			assert.ErrorIs(t, err, bulkpay.ErrInvalidInput)
			assert.True(t, bulkpay.IsClientError(err))
		})
	}

	credits, err := f.engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), credits)
}

func TestSubmitRejectsOverflowingTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 2)

	top := types.MustParseAmount("340282366920938463463374607431768211455")
	ps := []bulkpay.Payment{
		{Recipient: "bob.near", Amount: top},
		{Recipient: "carol.near", Amount: bulkpay.NewAmount(1)},
	}
	listID := bulkpay.ComputeListID(alice, "native", ps)

	_, err := f.engine.Submit(ctx, bulkpay.SubmitInput{
		ListID: listID, TokenID: "native", Payments: ps, Submitter: alice, Caller: alice,
	})
	assert.ErrorIs(t, err, bulkpay.ErrOverflow)
	assert.True(t, bulkpay.IsClientError(err))

	_, err = f.engine.ViewList(ctx, listID)
	assert.True(t, bulkpay.IsNotFound(err))

	credits, err := f.engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), credits)
}

func TestSubmitConsumesCredits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 10)

	listID := f.submit(t, "native", payments(4))

	credits, err := f.engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), credits)

	l, err := f.engine.ViewList(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, paylist.StatusPending, l.Status)
	assert.Equal(t, 4, l.PendingCount())
	assert.False(t, l.CreatedAt.IsZero())
	assert.Equal(t, []string{"submitted:" + listID}, f.events.all())
}

func TestSubmitDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 10)

	ps := payments(2)
	listID := f.submit(t, "native", ps)

	_, err := f.engine.Submit(ctx, bulkpay.SubmitInput{
		ListID: listID, TokenID: "native", Payments: ps, Submitter: alice, Caller: alice,
	})
	assert.ErrorIs(t, err, bulkpay.ErrAlreadyExists)

	credits, err := f.engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), credits)
}

func TestSubmitShortfallLeavesNoState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 2)

	ps := payments(3)
	listID := bulkpay.ComputeListID(alice, "native", ps)
	_, err := f.engine.Submit(ctx, bulkpay.SubmitInput{
		ListID: listID, TokenID: "native", Payments: ps, Submitter: alice, Caller: alice,
	})

	var shortfall *bulkpay.CreditShortfallError
	require.ErrorAs(t, err, &shortfall)
	assert.ErrorIs(t, err, bulkpay.ErrInsufficientCredits)
	assert.Equal(t, uint64(3), shortfall.Required)
	assert.Equal(t, uint64(2), shortfall.Available)

	credits, err := f.engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), credits)

	_, err = f.engine.ViewList(ctx, listID)
	assert.True(t, bulkpay.IsNotFound(err))
}

func TestSubmitOnBehalf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 4)

	ps := payments(2)
	listID := bulkpay.ComputeListID(alice, "native", ps)

	_, err := f.engine.Submit(ctx, bulkpay.SubmitInput{
		ListID: listID, TokenID: "native", Payments: ps, Submitter: alice, Caller: "mallory.near",
	})
	assert.ErrorIs(t, err, bulkpay.ErrUnauthorized)

	credits, err := f.engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), credits)

	_, err = f.engine.Submit(ctx, bulkpay.SubmitInput{
		ListID: listID, TokenID: "native", Payments: ps, Submitter: alice, Caller: system,
	})
	require.NoError(t, err)
}

func TestSubmitConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 100)

	ps := payments(5)
	listID := bulkpay.ComputeListID(alice, "native", ps)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Submit(ctx, bulkpay.SubmitInput{
				ListID: listID, TokenID: "native", Payments: ps, Submitter: alice, Caller: alice,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	credits, err := f.engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(95), credits)
}

type failingCreateStore struct {
	*memory.Store
}

func (s failingCreateStore) CreateList(context.Context, *paylist.List) error {
	return errors.New("disk full")
}

func TestSubmitRefundsOnCreateFailure(t *testing.T) {
	ctx := context.Background()
	s := failingCreateStore{Store: memory.New()}
	engine := bulkpay.New(s)

	cost, err := engine.Quote(3)
	require.NoError(t, err)
	_, err = engine.BuyStorage(ctx, alice, "", 3, cost)
	require.NoError(t, err)

	ps := payments(3)
	_, err = engine.Submit(ctx, bulkpay.SubmitInput{
		ListID:    bulkpay.ComputeListID(alice, "native", ps),
		TokenID:   "native",
		Payments:  ps,
		Submitter: alice,
		Caller:    alice,
	})
	require.Error(t, err)
	assert.False(t, bulkpay.IsClientError(err))

	credits, err := engine.Credits(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), credits)
}

func TestListIDIgnoresPaymentOrder(t *testing.T) {
	ps := payments(6)
	reversed := make([]bulkpay.Payment, len(ps))
	for i, p := range ps {
		reversed[len(ps)-1-i] = p
	}
	assert.Equal(t,
		bulkpay.ComputeListID(alice, "native", ps),
		bulkpay.ComputeListID(alice, "native", reversed),
	)
}

// ──────────────────────────────────────────────────
// Approval
// ──────────────────────────────────────────────────

func TestApproveExactTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 3)

	ps := payments(3)
	listID := f.submit(t, "native", ps)
	sum := total(ps)
	over, err := sum.Add(types.NewAmount(1))
	require.NoError(t, err)

	for _, attached := range []types.Amount{types.NewAmount(1), over} {
		err := f.engine.Approve(ctx, listID, alice, attached)
		assert.ErrorIs(t, err, bulkpay.ErrExactValueMismatch)
	}

	err = f.engine.Approve(ctx, listID, "mallory.near", sum)
	assert.ErrorIs(t, err, bulkpay.ErrUnauthorized)

	require.NoError(t, f.engine.Approve(ctx, listID, alice, sum))

	err = f.engine.Approve(ctx, listID, alice, sum)
	var stateErr *bulkpay.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, paylist.StatusApproved, stateErr.Status)

	assert.Equal(t, 1, f.events.count("approved:deposit"))
}

func TestApproveMissingList(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Approve(context.Background(), bulkpay.ComputeListID(alice, "native", payments(1)), alice, types.NewAmount(1))
	assert.ErrorIs(t, err, bulkpay.ErrNotFound)
}

func TestReject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 2)

	ps := payments(2)
	listID := f.submit(t, "native", ps)

	assert.ErrorIs(t, f.engine.Reject(ctx, listID, "mallory.near"), bulkpay.ErrUnauthorized)
	require.NoError(t, f.engine.Reject(ctx, listID, alice))

	assert.ErrorIs(t, f.engine.Reject(ctx, listID, alice), bulkpay.ErrInvalidState)
	assert.ErrorIs(t, f.engine.Approve(ctx, listID, alice, total(ps)), bulkpay.ErrInvalidState)

	_, err := f.engine.PayoutBatch(ctx, listID, 300)
	assert.ErrorIs(t, err, bulkpay.ErrInvalidState)

	l, err := f.engine.ViewList(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, paylist.StatusRejected, l.Status)
}

func TestApproveWithTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 2)

	ps := payments(2)
	listID := f.submit(t, "usdc.near", ps)

	_, err := f.engine.ApproveWithTransfer(ctx, bulkpay.FungibleDeposit{Sender: alice, Amount: total(ps), Msg: "not-a-list"})
	assert.ErrorIs(t, err, bulkpay.ErrInvalidInput)

	_, err = f.engine.ApproveWithTransfer(ctx, bulkpay.FungibleDeposit{Sender: "bob.near", Amount: total(ps), Msg: listID})
	assert.ErrorIs(t, err, bulkpay.ErrUnauthorized)

	_, err = f.engine.ApproveWithTransfer(ctx, bulkpay.FungibleDeposit{Sender: alice, Amount: total(ps), Msg: listID, Contract: "dai.near"})
	assert.ErrorIs(t, err, bulkpay.ErrExactValueMismatch)

	_, err = f.engine.ApproveWithTransfer(ctx, bulkpay.FungibleDeposit{Sender: alice, Amount: types.NewAmount(1), Msg: listID})
	assert.ErrorIs(t, err, bulkpay.ErrExactValueMismatch)

	refund, err := f.engine.ApproveWithTransfer(ctx, bulkpay.FungibleDeposit{Sender: alice, Amount: total(ps), Msg: listID, Contract: "usdc.near"})
	require.NoError(t, err)
	assert.True(t, refund.IsZero())
	assert.Equal(t, 1, f.events.count("approved:ft_transfer_call"))
}

func TestApproveWithMultiToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 2)

	const token = "nep141:usdc.omft.near"
	ps := payments(2)
	listID := f.submit(t, token, ps)
	sum := total(ps)

	_, err := f.engine.ApproveWithMultiToken(ctx, bulkpay.MultiTokenDeposit{
		Sender: "anyone.near", TokenIDs: []string{token, token}, Amounts: []types.Amount{sum, sum}, Msg: listID,
	})
	assert.ErrorIs(t, err, bulkpay.ErrInvalidInput)

	_, err = f.engine.ApproveWithMultiToken(ctx, bulkpay.MultiTokenDeposit{
		Sender: "anyone.near", TokenIDs: []string{"nep141:dai.near"}, Amounts: []types.Amount{sum}, Msg: listID,
	})
	var mismatch *bulkpay.ValueMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "token_id", mismatch.What)

	refunds, err := f.engine.ApproveWithMultiToken(ctx, bulkpay.MultiTokenDeposit{
		Sender: "anyone.near", TokenIDs: []string{token}, Amounts: []types.Amount{sum}, Msg: listID,
	})
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.True(t, refunds[0].IsZero())
	assert.Equal(t, 1, f.events.count("approved:mt_transfer_call"))
}

// ──────────────────────────────────────────────────
// Payout
// ──────────────────────────────────────────────────

func TestPayoutBatchBudgetBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	listID := f.approved(t, "usdc.near", 7)

	cost := rail.CostFungible
	_, err := f.engine.PayoutBatch(ctx, listID, cost+settle.Reserve-1)
	var budgetErr *bulkpay.BudgetError
	require.ErrorAs(t, err, &budgetErr)
	assert.ErrorIs(t, err, bulkpay.ErrInsufficientBudget)
	assert.Equal(t, cost+settle.Reserve, budgetErr.Need)
	assert.Zero(t, f.recorder.Len())

	remaining, err := f.engine.PayoutBatch(ctx, listID, 3*cost+settle.Reserve)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), remaining)
	assert.Equal(t, 3, f.recorder.Len())
}

func TestPayoutBatchMonotonicAndIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bulkpay.WithSequencer(settle.NewCounter(1000)))
	listID := f.approved(t, "native", 200)

	var remaining []uint64
	for {
		r, err := f.engine.PayoutBatch(ctx, listID, 300)
		require.NoError(t, err)
		remaining = append(remaining, r)
		if r == 0 {
			break
		}
	}
	// 95 native payments fit in 300 units.
	assert.Equal(t, []uint64{105, 10, 0}, remaining)
	assert.Equal(t, 200, f.recorder.Len())

	settled, err := f.engine.ViewSettled(ctx, listID)
	require.NoError(t, err)
	require.Len(t, settled, 200)
	assert.Equal(t, uint64(1001), settled[0].Reference)
	assert.Equal(t, uint64(1003), settled[199].Reference)

	eventsBefore := len(f.events.all())
	r, err := f.engine.PayoutBatch(ctx, listID, 300)
	require.NoError(t, err)
	assert.Zero(t, r)
	assert.Equal(t, 200, f.recorder.Len())
	assert.Len(t, f.events.all(), eventsBefore)
	assert.Equal(t, 1, f.events.count("settled:"))
}

func TestPayoutBatchInterrupted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	listID := f.approved(t, "native", 5)

	calls := 0
	f.recorder.Fail = func(rail.Instruction) error {
		calls++
		if calls == 3 {
			return errors.New("rpc unavailable")
		}
		return nil
	}

	remaining, err := f.engine.PayoutBatch(ctx, listID, 300)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), remaining)
	assert.Equal(t, 1, f.events.count("batch:interrupted:2"))

	f.recorder.Fail = nil
	remaining, err = f.engine.PayoutBatch(ctx, listID, 300)
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.Equal(t, 5, f.recorder.Len())
}

func TestPayoutBatchFirstDispatchFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	listID := f.approved(t, "native", 2)

	f.recorder.Fail = func(rail.Instruction) error { return errors.New("rpc unavailable") }

	_, err := f.engine.PayoutBatch(ctx, listID, 300)
	require.Error(t, err)

	l, err := f.engine.ViewList(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, 2, l.PendingCount())
	assert.Zero(t, f.events.count("batch:"))
}

// flakyUpdateStore fails UpdateList whenever fail returns an error.
type flakyUpdateStore struct {
	*memory.Store
	fail func(*paylist.List) error
}

func (s *flakyUpdateStore) UpdateList(ctx context.Context, l *paylist.List) error {
	if s.fail != nil {
		if err := s.fail(l); err != nil {
			return err
		}
	}
	return s.Store.UpdateList(ctx, l)
}

func newFlakyFixture(t *testing.T) (*fixture, *flakyUpdateStore) {
	t.Helper()
	s := &flakyUpdateStore{Store: memory.New()}
	f := &fixture{store: s.Store, recorder: rail.NewRecorder(), events: &eventLog{}}
	f.engine = bulkpay.New(s, bulkpay.WithDispatcher(f.recorder), bulkpay.WithPlugin(f.events))
	require.NoError(t, f.engine.Start(context.Background()))
	return f, s
}

func TestPayoutBatchWriteFailureSendsNothing(t *testing.T) {
	ctx := context.Background()
	f, s := newFlakyFixture(t)
	listID := f.approved(t, "native", 2)

	down := true
	s.fail = func(l *paylist.List) error {
		if down && l.PaidCount() > 0 {
			down = false
			return errors.New("db down")
		}
		return nil
	}

	_, err := f.engine.PayoutBatch(ctx, listID, 300)
	require.Error(t, err)
	assert.Zero(t, f.recorder.Len())

	l, err := f.engine.ViewList(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, 2, l.PendingCount())

	remaining, err := f.engine.PayoutBatch(ctx, listID, 300)
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.Equal(t, 2, f.recorder.Len())
}

func TestPayoutBatchFailedRestoreNeverResends(t *testing.T) {
	ctx := context.Background()
	f, s := newFlakyFixture(t)
	listID := f.approved(t, "native", 2)

	paidWritten := false
	s.fail = func(l *paylist.List) error {
		if l.PaidCount() > 0 {
			paidWritten = true
			return nil
		}
		if paidWritten {
			return errors.New("db down")
		}
		return nil
	}
	f.recorder.Fail = func(rail.Instruction) error { return errors.New("rpc unavailable") }

	_, err := f.engine.PayoutBatch(ctx, listID, 300)
	require.Error(t, err)

	// The restore failed, so the records stay paid and are not offered again.
	f.recorder.Fail = nil
	remaining, err := f.engine.PayoutBatch(ctx, listID, 300)
	require.NoError(t, err)
	assert.Zero(t, remaining)
	assert.Zero(t, f.recorder.Len())
}

func TestPayoutBatchRequiresApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.buy(t, alice, 1)
	listID := f.submit(t, "native", payments(1))

	_, err := f.engine.PayoutBatch(ctx, listID, 300)
	assert.ErrorIs(t, err, bulkpay.ErrInvalidState)

	_, err = f.engine.PayoutBatch(ctx, bulkpay.ComputeListID("nobody.near", "native", payments(1)), 300)
	assert.ErrorIs(t, err, bulkpay.ErrNotFound)
}

func TestPayoutBatchRails(t *testing.T) {
	tests := []struct {
		token    string
		kind     rail.Kind
		receiver string
		memo     bool
	}{
		{"NEAR", rail.KindNative, "r000.near", false},
		{"usdc.near", rail.KindFungible, "usdc.near", false},
		{"nep141:usdc.near", rail.KindMultiAsset, rail.IntentsContract, false},
		{"nep141:eth.omft.near", rail.KindMultiAsset, rail.IntentsContract, true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			f := newFixture(t)
			listID := f.approved(t, tt.token, 1)

			remaining, err := f.engine.PayoutBatch(context.Background(), listID, 1000)
			require.NoError(t, err)
			assert.Zero(t, remaining)

			ins := f.recorder.Instructions()
			require.Len(t, ins, 1)
			assert.Equal(t, tt.kind, ins[0].Kind)
			assert.Equal(t, tt.receiver, ins[0].Receiver)
			if tt.memo {
				assert.Contains(t, string(ins[0].Args), rail.WithdrawMemoPrefix+"r000.near")
			}
		})
	}
}

func TestEngineClock(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, bulkpay.WithClock(func() time.Time { return fixed }))
	f.buy(t, alice, 1)
	listID := f.submit(t, "native", payments(1))

	l, err := f.engine.ViewList(context.Background(), listID)
	require.NoError(t, err)
	assert.True(t, l.CreatedAt.Equal(fixed))
}
