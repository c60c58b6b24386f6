package ingest

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

// loopMetrics lives in its own metrics.Set so each Loop (and each test)
// registers its series independently.
type loopMetrics struct {
	set *metrics.Set

	lines       *metrics.Counter
	readings    *metrics.Counter
	malformed   *metrics.Counter
	storeErrors *metrics.Counter
	sinkErrors  *metrics.Counter
	values      map[types.Field]*metrics.Histogram
}

func newLoopMetrics(state func() State) *loopMetrics {
	set := metrics.NewSet()
	m := &loopMetrics{
		set:         set,
		lines:       set.NewCounter("plantmon_serial_lines_total"),
		readings:    set.NewCounter("plantmon_readings_total"),
		malformed:   set.NewCounter("plantmon_telegrams_malformed_total"),
		storeErrors: set.NewCounter("plantmon_store_errors_total"),
		sinkErrors:  set.NewCounter("plantmon_sink_errors_total"),
		values:      make(map[types.Field]*metrics.Histogram, len(types.Fields)),
	}
	for _, f := range types.Fields {
		m.values[f] = set.NewHistogram(fmt.Sprintf(`plantmon_reading_value{field=%q}`, f))
	}
	set.NewGauge("plantmon_serial_connected", func() float64 {
		if state() == Connected {
			return 1
		}
		return 0
	})
	return m
}

func (m *loopMetrics) observe(r types.Reading) {
	m.readings.Inc()
	for _, f := range types.Fields {
		if v, ok := r.Get(f); ok {
			m.values[f].Update(float64(v))
		}
	}
}
