package settle

import (
	"time"

	"github.com/xraph/bulkpay/id"
)

// Batch is the record of one settlement call against a list.
type Batch struct {
	ID         id.ID     `json:"id"`
	ListID     string    `json:"list_id"`
	Marker     uint64    `json:"marker"`
	Budget     uint64    `json:"budget"`
	Used       uint64    `json:"used"`
	Dispatched int       `json:"dispatched"`
	Remaining  int       `json:"remaining"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// NewBatch summarizes res for listID.
func NewBatch(listID string, budget, marker uint64, res Result, at time.Time) *Batch {
	b := &Batch{
		ID:         id.NewBatchID(),
		ListID:     listID,
		Marker:     marker,
		Budget:     budget,
		Used:       res.Used,
		Dispatched: res.Dispatched,
		Remaining:  res.Remaining,
		Outcome:    res.Outcome,
		At:         at,
	}
	if res.Err != nil {
		b.Error = res.Err.Error()
	}
	return b
}
