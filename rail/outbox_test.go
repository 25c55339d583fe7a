package rail_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/bulkpay/rail"
	"github.com/xraph/bulkpay/types"
)

type collectSender struct {
	mu   sync.Mutex
	sent []rail.Instruction
}

func (s *collectSender) Send(_ context.Context, ins rail.Instruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ins)
	return nil
}

func (s *collectSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestOutboxDeliversOnStop(t *testing.T) {
	sender := &collectSender{}
	ob := rail.NewOutbox(sender)
	ob.Start(context.Background())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := ob.NativeTransfer(ctx, "alice.near", types.NewAmount(uint64(i+1))); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	ob.Stop()

	if got := sender.count(); got != 3 {
		t.Errorf("expected 3 delivered instructions, got %d", got)
	}
	if err := ob.NativeTransfer(ctx, "alice.near", types.NewAmount(1)); !errors.Is(err, rail.ErrOutboxClosed) {
		t.Errorf("expected ErrOutboxClosed after Stop, got %v", err)
	}
}

func TestOutboxFull(t *testing.T) {
	ob := rail.NewOutbox(&collectSender{}, rail.WithBuffer(1))

	ctx := context.Background()
	if err := ob.FungibleTransfer(ctx, "usdc.near", "a.near", types.NewAmount(1)); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := ob.FungibleTransfer(ctx, "usdc.near", "b.near", types.NewAmount(1)); !errors.Is(err, rail.ErrOutboxFull) {
		t.Errorf("expected ErrOutboxFull, got %v", err)
	}
	if ob.Pending() != 1 {
		t.Errorf("expected 1 pending, got %d", ob.Pending())
	}
}

func TestOutboxRetriesThenDrops(t *testing.T) {
	var calls atomic.Int32
	var dropped atomic.Int32

	sender := rail.SenderFunc(func(context.Context, rail.Instruction) error {
		calls.Add(1)
		return errors.New("rpc unavailable")
	})
	ob := rail.NewOutbox(sender,
		rail.WithRetry(3, time.Millisecond),
		rail.WithDropHandler(func(rail.Instruction, error) { dropped.Add(1) }),
	)
	ob.Start(context.Background())

	if err := ob.MultiAssetWithdraw(context.Background(), "usdc.near", "a.near", types.NewAmount(5), ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	ob.Stop()

	if calls.Load() != 3 {
		t.Errorf("expected 3 send attempts, got %d", calls.Load())
	}
	if dropped.Load() != 1 {
		t.Errorf("expected 1 dropped instruction, got %d", dropped.Load())
	}
}

func TestOutboxReportsQueuedOnCancel(t *testing.T) {
	release := make(chan struct{})
	var sent atomic.Int32
	sender := rail.SenderFunc(func(ctx context.Context, _ rail.Instruction) error {
		<-release
		if err := ctx.Err(); err != nil {
			return err
		}
		sent.Add(1)
		return nil
	})

	var mu sync.Mutex
	var dropped []rail.Instruction
	ob := rail.NewOutbox(sender,
		rail.WithRetry(1, time.Millisecond),
		rail.WithDropHandler(func(ins rail.Instruction, _ error) {
			mu.Lock()
			defer mu.Unlock()
			dropped = append(dropped, ins)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	ob.Start(ctx)

	for i := 0; i < 3; i++ {
		if err := ob.NativeTransfer(context.Background(), "alice.near", types.NewAmount(uint64(i+1))); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	cancel()
	close(release)
	ob.Stop()

	mu.Lock()
	reported := len(dropped)
	mu.Unlock()

	if got := int(sent.Load()) + reported; got != 3 {
		t.Errorf("sent %d + reported %d, want every one of 3 accounted for", sent.Load(), reported)
	}
	if ob.Pending() != 0 {
		t.Errorf("expected empty queue, got %d", ob.Pending())
	}
	if err := ob.NativeTransfer(context.Background(), "alice.near", types.NewAmount(1)); !errors.Is(err, rail.ErrOutboxClosed) {
		t.Errorf("expected ErrOutboxClosed after cancel, got %v", err)
	}
}
