// Package ledger implements the average-entry ledger: per-asset lifetime
// cost and quantity accumulation with a derived weighted average price.
package ledger

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/custosbot/custos/internal/domain"
)

type store interface {
	SavePosition(position domain.AssetPosition) error
	LoadPositions() (map[string]domain.AssetPosition, error)
}

// Ledger tracks asset positions in memory and persists every mutation
// through the state store. Read-modify-write is serialized per asset, so
// concurrent updates for the same symbol cannot lose each other while
// different symbols proceed independently.
type Ledger struct {
	store store

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	positions map[string]domain.AssetPosition
}

// New restores the ledger from the store.
func New(store store) (*Ledger, error) {
	positions, err := store.LoadPositions()
	if err != nil {
		return nil, errors.Wrap(err, "restore ledger positions")
	}
	if positions == nil {
		positions = make(map[string]domain.AssetPosition)
	}

	return &Ledger{
		store:     store,
		locks:     make(map[string]*sync.Mutex),
		positions: positions,
	}, nil
}

func (l *Ledger) assetLock(symbol string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[symbol] = lock
	}
	return lock
}

// RecordBuy adds a confirmed buy to the asset's position and persists it.
// The in-memory position is only replaced after the store accepted the
// update, so a failed write leaves the ledger unchanged.
func (l *Ledger) RecordBuy(symbol string, costUSD, priceUSD decimal.Decimal) error {
	lock := l.assetLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	position := l.position(symbol)
	if err := position.ApplyBuy(costUSD, priceUSD); err != nil {
		return err
	}

	if err := l.store.SavePosition(position); err != nil {
		return errors.Wrapf(err, "persist position %s", symbol)
	}

	l.mu.Lock()
	l.positions[symbol] = position
	l.mu.Unlock()

	return nil
}

// Position returns the tracked position, or an empty one for unknown assets.
func (l *Ledger) Position(symbol string) domain.AssetPosition {
	lock := l.assetLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	return l.position(symbol)
}

// AveragePrice returns the weighted average entry price for the asset.
func (l *Ledger) AveragePrice(symbol string) (decimal.Decimal, error) {
	return l.Position(symbol).AveragePrice()
}

func (l *Ledger) position(symbol string) domain.AssetPosition {
	l.mu.Lock()
	defer l.mu.Unlock()

	if position, ok := l.positions[symbol]; ok {
		return position
	}
	return domain.NewAssetPosition(symbol)
}
