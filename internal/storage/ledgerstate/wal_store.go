// Package ledgerstate persists asset positions and the DCA cycle state in a
// write-ahead log. The latest record per key wins on replay, so every save
// is an atomic per-key upsert.
package ledgerstate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/custosbot/custos/internal/domain"
)

const (
	defaultStateDir    = "./wal/treasury"
	walSegmentLimit    = 1000
	walMaxSegments     = 100
	positionKeyPrefix  = "position_"
	cycleStateKey      = "dca_cycle"
	signalRecordPrefix = "signal_"
)

// Store is a WAL-backed state store for treasury accounting.
type Store struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// NewStore opens (or creates) the WAL under dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = defaultStateDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "state_",
		SegmentThreshold: walSegmentLimit,
		MaxSegments:      walMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init treasury state WAL")
	}

	return &Store{wal: wal}, nil
}

// SavePosition appends the position under its symbol key.
func (s *Store) SavePosition(position domain.AssetPosition) error {
	if position.Symbol == "" {
		return errors.New("position symbol is required")
	}
	return s.write(positionKeyPrefix+position.Symbol, position)
}

// SaveCycle appends the DCA cycle state singleton.
func (s *Store) SaveCycle(cycle domain.CycleState) error {
	return s.write(cycleStateKey, cycle)
}

func (s *Store) write(key string, value any) error {
	if s == nil || s.wal == nil {
		return errors.New("treasury state store is not initialized")
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "marshal state record %s", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, key, payload)
}

// LoadPositions replays the WAL and returns the newest position per symbol.
func (s *Store) LoadPositions() (map[string]domain.AssetPosition, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("treasury state store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[string]domain.AssetPosition)
	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, positionKeyPrefix) {
			continue
		}
		var position domain.AssetPosition
		if err := json.Unmarshal(msg.Value, &position); err != nil {
			return nil, errors.Wrapf(err, "decode position record %s", msg.Key)
		}
		positions[position.Symbol] = position
	}

	return positions, nil
}

// LoadCycle replays the WAL and returns the newest cycle state, or the
// zero-valued initial state when none was persisted yet.
func (s *Store) LoadCycle() (domain.CycleState, error) {
	if s == nil || s.wal == nil {
		return domain.CycleState{}, errors.New("treasury state store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cycle := domain.NewCycleState()
	for msg := range s.wal.Iterator() {
		if msg.Key != cycleStateKey {
			continue
		}
		if err := json.Unmarshal(msg.Value, &cycle); err != nil {
			return domain.CycleState{}, errors.Wrap(err, "decode cycle state record")
		}
	}

	return cycle, nil
}

// SaveSignalOutcome journals one processed webhook signal so the audit trail
// survives restarts.
func (s *Store) SaveSignalOutcome(record SignalRecord) error {
	if record.ID == "" {
		return errors.New("signal record id is required")
	}
	return s.write(signalRecordPrefix+record.ID, record)
}

// SignalOutcomes returns every journaled signal record in WAL order.
func (s *Store) SignalOutcomes() ([]SignalRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("treasury state store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SignalRecord, 0)
	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, signalRecordPrefix) {
			continue
		}
		var record SignalRecord
		if err := json.Unmarshal(msg.Value, &record); err != nil {
			return nil, errors.Wrapf(err, "decode signal record %s", msg.Key)
		}
		records = append(records, record)
	}

	return records, nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("treasury state store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

// SignalRecord is the durable outcome of one processed webhook signal.
type SignalRecord struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
	AmountUSD string `json:"amount_usd,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Err       string `json:"error,omitempty"`
	Timestamp int64  `json:"ts"`
}

// String renders the record for logs.
func (r SignalRecord) String() string {
	if r.Err != "" {
		return fmt.Sprintf("%s %s failed: %s", r.Token, r.Action, r.Err)
	}
	return fmt.Sprintf("%s %s (%s)", r.Token, r.Action, r.Reason)
}
