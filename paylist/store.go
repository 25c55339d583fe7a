package paylist

import "context"

type Store interface {
	Create(ctx context.Context, l *List) error
	Get(ctx context.Context, listID string) (*List, error)
	Update(ctx context.Context, l *List) error
	List(ctx context.Context, opts ListOpts) ([]*List, error)
}

type ListOpts struct {
	Status    Status
	Submitter string
	Limit     int
	Offset    int
}
