package gate

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultScanWindow is how many of the most recent proposals are inspected.
const DefaultScanWindow uint64 = 100

// ProposalSource reads proposals from a governance contract.
type ProposalSource interface {
	// LastProposalID returns the id that the next proposal will get, which
	// is also the number of proposals created so far.
	LastProposalID(ctx context.Context, dao string) (uint64, error)
	Proposal(ctx context.Context, dao string, id uint64) (*Proposal, error)
}

// ProposalGate implements Gate by scanning recent in-progress proposals of a
// DAO for a reference to the list identifier.
type ProposalGate struct {
	source            ProposalSource
	settlementAccount string
	window            uint64
	logger            *slog.Logger
}

var _ Gate = (*ProposalGate)(nil)

// ProposalGateOption configures a ProposalGate.
type ProposalGateOption func(*ProposalGate)

// WithScanWindow overrides DefaultScanWindow.
func WithScanWindow(n uint64) ProposalGateOption {
	return func(g *ProposalGate) { g.window = n }
}

// WithGateLogger sets the logger.
func WithGateLogger(logger *slog.Logger) ProposalGateOption {
	return func(g *ProposalGate) { g.logger = logger }
}

// NewProposalGate creates a gate over source. settlementAccount is the
// account a FunctionCall proposal must target for its arguments to count.
func NewProposalGate(source ProposalSource, settlementAccount string, opts ...ProposalGateOption) *ProposalGate {
	g := &ProposalGate{
		source:            source,
		settlementAccount: settlementAccount,
		window:            DefaultScanWindow,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasPendingReference implements Gate. Proposals that cannot be fetched are
// skipped; failing to read the proposal count is returned as an error.
func (g *ProposalGate) HasPendingReference(ctx context.Context, dao, listID string) (bool, error) {
	last, err := g.source.LastProposalID(ctx, dao)
	if err != nil {
		return false, fmt.Errorf("gate: last proposal id of %s: %w", dao, err)
	}
	if last == 0 {
		g.logger.Info("no proposals found", "dao", dao)
		return false, nil
	}

	start := uint64(0)
	if last > g.window {
		start = last - g.window
	}

	for pid := start; pid < last; pid++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		p, err := g.source.Proposal(ctx, dao, pid)
		if err != nil {
			g.logger.Debug("skipping unreadable proposal", "dao", dao, "proposal_id", pid, "error", err)
			continue
		}
		if p.Status != ProposalInProgress {
			continue
		}
		if p.References(listID, g.settlementAccount) {
			g.logger.Info("found matching proposal", "dao", dao, "proposal_id", pid, "list_id", listID)
			return true, nil
		}
	}

	g.logger.Info("no matching proposal", "dao", dao, "list_id", listID)
	return false, nil
}
