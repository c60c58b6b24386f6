// Package live holds the most recent complete reading.
package live

import (
	"sync/atomic"
	"time"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

// Snapshot is what readers observe. Seq starts at 1 for the first publish.
type Snapshot struct {
	Reading     types.Reading
	Seq         uint64
	PublishedAt time.Time
}

// Slot is a single-writer, multi-reader cell. The zero value is unset.
type Slot struct {
	cur atomic.Pointer[Snapshot]
	seq atomic.Uint64
}

func NewSlot() *Slot {
	return &Slot{}
}

// Publish replaces the current value. Only the ingestion loop calls it.
func (s *Slot) Publish(r types.Reading) Snapshot {
	snap := &Snapshot{
		Reading:     r.Clone(),
		Seq:         s.seq.Add(1),
		PublishedAt: time.Now(),
	}
	s.cur.Store(snap)
	return *snap
}

// Load returns the latest reading, or ok=false while the slot is unset.
func (s *Slot) Load() (types.Reading, bool) {
	snap, ok := s.Snapshot()
	if !ok {
		return types.Reading{}, false
	}
	return snap.Reading, true
}

func (s *Slot) Snapshot() (Snapshot, bool) {
	p := s.cur.Load()
	if p == nil {
		return Snapshot{}, false
	}
	snap := *p
	snap.Reading = p.Reading.Clone()
	return snap, true
}

// Seq is 0 until the first publish.
func (s *Slot) Seq() uint64 {
	p := s.cur.Load()
	if p == nil {
		return 0
	}
	return p.Seq
}
