// Package draft holds the dish+quantity pairs the guest has chosen but not
// yet submitted. The in-memory lines are the logical state; persistence is a
// convenience cache so the cart survives a device restart, never a second
// source of truth.
package draft

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "github.com/tableside/tableside/pkg/errors"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/types"
)

// Line is one not-yet-submitted dish choice. Quantity is always >= 1; a
// line that would reach 0 is removed instead.
type Line struct {
	DishID    int64       `json:"dish_id"`
	Name      string      `json:"name"`
	UnitPrice types.Money `json:"unit_price"`
	Quantity  int         `json:"quantity"`
}

// Persistence stores the serialized cart under a fixed storage name.
type Persistence interface {
	Load(ctx context.Context) ([]Line, error)
	Save(ctx context.Context, lines []Line) error
	Wipe(ctx context.Context) error
}

// Store is the local draft cart. Single writer: only direct user actions in
// the owning view mutate it.
type Store struct {
	mu      sync.Mutex
	lines   []Line
	persist Persistence
	logg    *logger.Logger
}

// NewStore builds the store and rehydrates any persisted cart.
func NewStore(ctx context.Context, persist Persistence, logg *logger.Logger) (*Store, error) {
	if persist == nil {
		return nil, fmt.Errorf("persistence required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	store := &Store{persist: persist, logg: logg}
	lines, err := persist.Load(ctx)
	if err != nil {
		// A broken cache never blocks a fresh cart.
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "draft cart rehydration failed, starting empty")
		return store, nil
	}
	store.lines = lines
	return store, nil
}

// Add appends qty of the dish, merging into an existing line for the same
// dish. A non-positive qty counts as 1.
func (s *Store) Add(ctx context.Context, dish Line) {
	if dish.Quantity <= 0 {
		dish.Quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].DishID == dish.DishID {
			s.lines[i].Quantity += dish.Quantity
			s.saveLocked(ctx)
			return
		}
	}
	s.lines = append(s.lines, dish)
	s.saveLocked(ctx)
}

// Remove deletes the line for the dish, if present.
func (s *Store) Remove(ctx context.Context, dishID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(ctx, dishID)
}

// SetQuantity pins the line's quantity; qty <= 0 removes the line.
func (s *Store) SetQuantity(ctx context.Context, dishID int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		s.removeLocked(ctx, dishID)
		return nil
	}
	for i := range s.lines {
		if s.lines[i].DishID == dishID {
			s.lines[i].Quantity = qty
			s.saveLocked(ctx)
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "dish not in cart")
}

// Clear empties the cart and its durable copy. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	if err := s.persist.Wipe(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wipe draft persistence")
	}
	return nil
}

// Lines returns a copy of the current draft lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// TotalCount sums the quantities across all lines.
func (s *Store) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice sums quantity times unit price across all lines.
func (s *Store) TotalPrice() types.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total types.Money
	for _, line := range s.lines {
		total = total.Add(line.UnitPrice.MulInt(line.Quantity))
	}
	return total
}

func (s *Store) removeLocked(ctx context.Context, dishID int64) {
	for i := range s.lines {
		if s.lines[i].DishID == dishID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.saveLocked(ctx)
			return
		}
	}
}

func (s *Store) saveLocked(ctx context.Context) {
	if err := s.persist.Save(ctx, s.lines); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "draft cart persistence failed")
	}
}
