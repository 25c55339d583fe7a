package rail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"

	"github.com/xraph/bulkpay/types"
)

var (
	// ErrOutboxFull is returned when the outbox buffer has no room. The
	// payment is not dispatched and stays pending.
	ErrOutboxFull = errors.New("rail: outbox full")

	// ErrOutboxClosed is returned after Stop.
	ErrOutboxClosed = errors.New("rail: outbox closed")
)

// Sender delivers an instruction to the destination ledger.
type Sender interface {
	Send(ctx context.Context, ins Instruction) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, ins Instruction) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, ins Instruction) error { return f(ctx, ins) }

// Outbox is the production Dispatcher. Instructions are queued and a
// background loop hands them to the Sender, so the settlement engine never
// waits on the destination ledger. A send that still fails after retries is
// logged and dropped; the payment stays settled in the engine's books.
type Outbox struct {
	sender Sender
	logger *slog.Logger
	queue  chan Instruction

	attempts uint
	delay    time.Duration

	mu       sync.RWMutex
	closed   bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  func(Instruction, error)
}

var _ Dispatcher = (*Outbox)(nil)

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithOutboxLogger sets the logger.
func WithOutboxLogger(logger *slog.Logger) OutboxOption {
	return func(o *Outbox) { o.logger = logger }
}

// WithBuffer sets the queue capacity (default 1024).
func WithBuffer(n int) OutboxOption {
	return func(o *Outbox) { o.queue = make(chan Instruction, n) }
}

// WithRetry sets the number of send attempts and the delay between them.
func WithRetry(attempts uint, delay time.Duration) OutboxOption {
	return func(o *Outbox) {
		o.attempts = attempts
		o.delay = delay
	}
}

// WithDropHandler is called for every instruction abandoned after retries.
func WithDropHandler(fn func(Instruction, error)) OutboxOption {
	return func(o *Outbox) { o.dropped = fn }
}

// NewOutbox creates an Outbox delivering to sender. Call Start before use.
func NewOutbox(sender Sender, opts ...OutboxOption) *Outbox {
	o := &Outbox{
		sender:   sender,
		logger:   slog.Default(),
		queue:    make(chan Instruction, 1024),
		attempts: 5,
		delay:    200 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Outbox) NativeTransfer(_ context.Context, recipient string, amount types.Amount) error {
	return o.enqueue(NativeInstruction(recipient, amount))
}

func (o *Outbox) MultiAssetWithdraw(_ context.Context, asset, recipient string, amount types.Amount, memo string) error {
	return o.enqueue(MultiAssetInstruction(asset, recipient, amount, memo))
}

func (o *Outbox) FungibleTransfer(_ context.Context, contract, recipient string, amount types.Amount) error {
	return o.enqueue(FungibleInstruction(contract, recipient, amount))
}

func (o *Outbox) enqueue(ins Instruction) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.queue <- ins:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Pending returns the number of queued instructions.
func (o *Outbox) Pending() int { return len(o.queue) }

// Start begins delivering queued instructions. If ctx ends before Stop the
// outbox closes and every queued instruction is reported as dropped.
func (o *Outbox) Start(ctx context.Context) {
	o.wg.Add(1)
	go o.run(ctx)
}

// Stop refuses new instructions, delivers what is queued and waits for the
// delivery loop to exit.
func (o *Outbox) Stop() {
	o.close()
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.wg.Wait()
}

func (o *Outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

func (o *Outbox) run(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case ins := <-o.queue:
			o.deliver(ctx, ins)
		case <-o.stopCh:
			o.drain(ctx)
			return
		case <-ctx.Done():
			o.close()
			o.abandon(ctx.Err())
			return
		}
	}
}

func (o *Outbox) drain(ctx context.Context) {
	for {
		select {
		case ins := <-o.queue:
			o.deliver(ctx, ins)
		default:
			return
		}
	}
}

// abandon reports everything still queued as dropped. It runs after close,
// so nothing new can arrive.
func (o *Outbox) abandon(err error) {
	for {
		select {
		case ins := <-o.queue:
			o.drop(ins, err)
		default:
			return
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, ins Instruction) {
	err := retry.Do(
		func() error { return o.sender.Send(ctx, ins) },
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.Delay(o.delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		o.drop(ins, err)
		return
	}

	o.logger.Debug("dispatch sent",
		"dispatch_id", ins.ID.String(),
		"kind", ins.Kind,
		"receiver", ins.Receiver,
		"recipient", ins.Recipient,
	)
}

func (o *Outbox) drop(ins Instruction, err error) {
	o.logger.Error("dispatch dropped",
		"dispatch_id", ins.ID.String(),
		"kind", ins.Kind,
		"receiver", ins.Receiver,
		"recipient", ins.Recipient,
		"amount", ins.Amount.String(),
		"error", err,
	)
	if o.dropped != nil {
		o.dropped(ins, err)
	}
}

// LogSender is a Sender that only logs. It is useful for local runs where no
// ledger endpoint is configured.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, ins Instruction) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("rail instruction",
		"dispatch_id", ins.ID.String(),
		"kind", ins.Kind,
		"receiver", ins.Receiver,
		"method", ins.Method,
		"args", string(ins.Args),
		"deposit", ins.Deposit.String(),
	)
	return nil
}
