package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

// Ledger is the only writer of stock events. Quantities on hand are never
// stored; every read folds the event log.
type Ledger struct {
	events   repository.StockEventRepository
	products repository.ProductRepository
}

func NewLedger(events repository.StockEventRepository, products repository.ProductRepository) *Ledger {
	return &Ledger{events: events, products: products}
}

// Append validates and records one movement. synced_at is always stamped with
// server time; created_at defaults to it.
func (l *Ledger) Append(ctx context.Context, e *model.StockEvent) error {
	if err := checkEvent(e); err != nil {
		return err
	}
	now := clock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.SyncedAt = now
	if err := l.events.Create(ctx, e); err != nil {
		return fmt.Errorf("failed to append stock event: %w", err)
	}
	return nil
}

func checkEvent(e *model.StockEvent) error {
	var fields []string
	if !model.ValidEventType(e.EventType) {
		fields = append(fields, "event_type")
	}
	if e.ProductID == uuid.Nil {
		fields = append(fields, "product_id")
	}
	if e.StoreID == uuid.Nil {
		fields = append(fields, "store_id")
	}
	if e.Quantity == 0 {
		fields = append(fields, "quantity")
	}
	if (e.ReferenceType == nil) != (e.ReferenceID == nil) {
		fields = append(fields, "reference_type", "reference_id")
	}
	if len(fields) > 0 {
		return newValidationError("invalid stock event", fields...)
	}
	return nil
}

// ensureProducts fails with ErrNotFound unless every id names a product.
func (l *Ledger) ensureProducts(ctx context.Context, ids []uuid.UUID) error {
	unique := make(map[uuid.UUID]struct{}, len(ids))
	list := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		list = append(list, id)
	}
	n, err := l.products.CountExisting(ctx, list)
	if err != nil {
		return fmt.Errorf("failed to check products: %w", err)
	}
	if n != int64(len(list)) {
		return fmt.Errorf("one or more products: %w", ErrNotFound)
	}
	return nil
}

// OnHand folds the pair's events up to asOf (nil means now).
func (l *Ledger) OnHand(ctx context.Context, productID, storeID uuid.UUID, asOf *time.Time) (model.InventorySnapshot, error) {
	events, err := l.events.ListForPair(ctx, productID, storeID, asOf)
	if err != nil {
		return model.InventorySnapshot{}, fmt.Errorf("failed to read stock events: %w", err)
	}
	snaps := FoldSnapshot(events, asOf)
	if len(snaps) == 0 {
		return model.InventorySnapshot{ProductID: productID, StoreID: storeID}, nil
	}
	return snaps[0], nil
}

// StoreSnapshot folds every product with movements in the store.
func (l *Ledger) StoreSnapshot(ctx context.Context, storeID uuid.UUID, asOf *time.Time) ([]model.InventorySnapshot, error) {
	events, err := l.events.ListForStore(ctx, storeID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock events: %w", err)
	}
	return FoldSnapshot(events, asOf), nil
}

// Movements lists the events recorded against one document, oldest first.
// Several reference types may be given, e.g. a sale and its void.
func (l *Ledger) Movements(ctx context.Context, refID uuid.UUID, refTypes ...string) ([]model.StockEvent, error) {
	out := []model.StockEvent{}
	for _, refType := range refTypes {
		events, err := l.events.ListByReference(ctx, refType, refID)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s movements: %w", refType, err)
		}
		out = append(out, events...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type pairKey struct {
	product uuid.UUID
	store   uuid.UUID
}

// FoldSnapshot sums events per (product, store), ignoring events created after
// asOf when it is set. The result is ordered by store then product id.
func FoldSnapshot(events []model.StockEvent, asOf *time.Time) []model.InventorySnapshot {
	acc := make(map[pairKey]*model.InventorySnapshot)
	for _, e := range events {
		if asOf != nil && e.CreatedAt.After(*asOf) {
			continue
		}
		k := pairKey{product: e.ProductID, store: e.StoreID}
		snap, ok := acc[k]
		if !ok {
			snap = &model.InventorySnapshot{ProductID: e.ProductID, StoreID: e.StoreID}
			acc[k] = snap
		}
		snap.OnHandQty += e.Quantity
		if snap.LastMovementAt == nil || e.CreatedAt.After(*snap.LastMovementAt) {
			at := e.CreatedAt
			snap.LastMovementAt = &at
		}
	}

	out := make([]model.InventorySnapshot, 0, len(acc))
	for _, snap := range acc {
		out = append(out, *snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].StoreID[:], out[j].StoreID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]) < 0
	})
	return out
}

// Merge records an event pushed by a terminal. The first writer of an id wins;
// a repeated id is reported as not inserted and leaves the row untouched.
func (l *Ledger) Merge(ctx context.Context, e *model.StockEvent) (bool, error) {
	if err := checkEvent(e); err != nil {
		return false, err
	}
	now := clock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.SyncedAt = now
	inserted, err := l.events.InsertIgnore(ctx, e)
	if err != nil {
		return false, fmt.Errorf("failed to merge stock event: %w", err)
	}
	return inserted, nil
}
