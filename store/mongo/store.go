package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/bulkpay"
	"github.com/xraph/bulkpay/paylist"
	bulkpaystore "github.com/xraph/bulkpay/store"
)

// Collection name constants.
const (
	colLists   = "bulkpay_lists"
	colCredits = "bulkpay_credits"
)

// compile-time interface check
var _ bulkpaystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all bulkpay collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("bulkpay/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Payment list Store ====================

func (s *Store) CreateList(ctx context.Context, l *paylist.List) error {
	m := toListModel(l)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bulkpay.ErrListExists
		}
		return fmt.Errorf("bulkpay/mongo: create list: %w", err)
	}
	return nil
}

func (s *Store) GetList(ctx context.Context, listID string) (*paylist.List, error) {
	var m listModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": listID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, bulkpay.ErrListNotFound
		}
		return nil, fmt.Errorf("bulkpay/mongo: get list: %w", err)
	}
	return fromListModel(&m)
}

func (s *Store) UpdateList(ctx context.Context, l *paylist.List) error {
	m := toListModel(l)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bulkpay/mongo: update list: %w", err)
	}
	if res.MatchedCount() == 0 {
		return bulkpay.ErrListNotFound
	}
	return nil
}

func (s *Store) ListLists(ctx context.Context, opts paylist.ListOpts) ([]*paylist.List, error) {
	var models []listModel

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Submitter != "" {
		filter["submitter"] = opts.Submitter
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bulkpay/mongo: list lists: %w", err)
	}

	result := make([]*paylist.List, len(models))
	for i := range models {
		l, err := fromListModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

// ==================== Credit Store ====================

func (s *Store) GetCredits(ctx context.Context, account string) (uint64, error) {
	var m creditModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": account}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("bulkpay/mongo: get credits: %w", err)
	}
	return uint64(m.Credits), nil //nolint:gosec // never negative
}

// AddCredits increments the balance with an upsert. The filter only matches
// balances that can take n more; when an existing balance is too large the
// upsert collides on _id and the addition is reported as an overflow.
func (s *Store) AddCredits(ctx context.Context, account string, n uint64) (uint64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: credits of %s", bulkpay.ErrOverflow, account)
	}

	t := now()
	filter := bson.M{"_id": account, "credits": bson.M{"$lte": math.MaxInt64 - int64(n)}}
	update := bson.M{
		"$inc":         bson.M{"credits": int64(n)},
		"$set":         bson.M{"updated_at": t},
		"$setOnInsert": bson.M{"created_at": t},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var m creditModel
	err := s.mdb.Collection(colCredits).FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: credits of %s", bulkpay.ErrOverflow, account)
		}
		return 0, fmt.Errorf("bulkpay/mongo: add credits: %w", err)
	}
	return uint64(m.Credits), nil //nolint:gosec // never negative
}

// DebitCredits decrements the balance only when it covers n.
func (s *Store) DebitCredits(ctx context.Context, account string, n uint64) (uint64, error) {
	if n == 0 {
		return s.GetCredits(ctx, account)
	}
	if n > math.MaxInt64 {
		available, err := s.GetCredits(ctx, account)
		if err != nil {
			return 0, err
		}
		return available, &bulkpay.CreditShortfallError{Account: account, Required: n, Available: available}
	}

	filter := bson.M{"_id": account, "credits": bson.M{"$gte": int64(n)}}
	update := bson.M{
		"$inc": bson.M{"credits": -int64(n)},
		"$set": bson.M{"updated_at": now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var m creditModel
	err := s.mdb.Collection(colCredits).FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			available, getErr := s.GetCredits(ctx, account)
			if getErr != nil {
				return 0, getErr
			}
			return available, &bulkpay.CreditShortfallError{Account: account, Required: n, Available: available}
		}
		return 0, fmt.Errorf("bulkpay/mongo: debit credits: %w", err)
	}
	return uint64(m.Credits), nil //nolint:gosec // never negative
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all bulkpay collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colLists: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "submitter", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colCredits: {
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
	}
}
