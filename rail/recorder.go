package rail

import (
	"context"
	"sync"

	"github.com/xraph/bulkpay/types"
)

// Recorder is a Dispatcher that keeps every instruction in memory. Fail, when
// set, is consulted before recording and may reject an instruction.
type Recorder struct {
	mu           sync.Mutex
	instructions []Instruction

	Fail func(Instruction) error
}

var _ Dispatcher = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) NativeTransfer(_ context.Context, recipient string, amount types.Amount) error {
	return r.record(NativeInstruction(recipient, amount))
}

func (r *Recorder) MultiAssetWithdraw(_ context.Context, asset, recipient string, amount types.Amount, memo string) error {
	return r.record(MultiAssetInstruction(asset, recipient, amount, memo))
}

func (r *Recorder) FungibleTransfer(_ context.Context, contract, recipient string, amount types.Amount) error {
	return r.record(FungibleInstruction(contract, recipient, amount))
}

func (r *Recorder) record(ins Instruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(ins); err != nil {
			return err
		}
	}
	r.instructions = append(r.instructions, ins)
	return nil
}

// Instructions returns a copy of everything recorded so far.
func (r *Recorder) Instructions() []Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Instruction(nil), r.instructions...)
}

// Len returns the number of recorded instructions.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instructions)
}
