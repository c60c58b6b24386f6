package ingest

import (
	"context"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

// Store is the part of the reading repository the loop writes to.
type Store interface {
	Append(ctx context.Context, r types.Reading) (types.Reading, error)
}

// Sink receives every stored reading after the slot and the store.
// A failing sink is logged and counted but never stops ingestion.
type Sink interface {
	Name() string
	Consume(ctx context.Context, r types.Reading) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, r types.Reading) error
}

func (s SinkFunc) Name() string { return s.SinkName }

func (s SinkFunc) Consume(ctx context.Context, r types.Reading) error { return s.Fn(ctx, r) }
