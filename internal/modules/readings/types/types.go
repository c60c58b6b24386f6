package types

import (
	"fmt"
	"time"
)

// Field names one numeric attribute of a Reading.
type Field string

const (
	FieldMoisture      Field = "moisture"
	FieldTemperature   Field = "temperature"
	FieldHumidity      Field = "humidity"
	FieldWaterDistance Field = "water_distance"
)

// Fields lists every known field in column order.
var Fields = []Field{FieldMoisture, FieldTemperature, FieldHumidity, FieldWaterDistance}

func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// Reading is one sensor sample. A nil field is not part of the schema
// that produced the reading.
type Reading struct {
	ID            int64     `json:"id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Moisture      *int      `json:"moisture,omitempty"`
	Temperature   *int      `json:"temperature,omitempty"`
	Humidity      *int      `json:"humidity,omitempty"`
	WaterDistance *int      `json:"water_distance,omitempty"`
}

func (r *Reading) ptr(f Field) **int {
	switch f {
	case FieldMoisture:
		return &r.Moisture
	case FieldTemperature:
		return &r.Temperature
	case FieldHumidity:
		return &r.Humidity
	case FieldWaterDistance:
		return &r.WaterDistance
	}
	return nil
}

// Set stores v in field f. Unknown fields are ignored.
func (r *Reading) Set(f Field, v int) {
	if p := r.ptr(f); p != nil {
		val := v
		*p = &val
	}
}

// Get returns the value of field f and whether it is present.
func (r Reading) Get(f Field) (int, bool) {
	p := r.ptr(f)
	if p == nil || *p == nil {
		return 0, false
	}
	return **p, true
}

// Clone returns a deep copy so the receiver can be handed to another goroutine.
func (r Reading) Clone() Reading {
	out := Reading{ID: r.ID, Timestamp: r.Timestamp}
	for _, f := range Fields {
		if v, ok := r.Get(f); ok {
			out.Set(f, v)
		}
	}
	return out
}

// Order selects the direction of a store query.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

func (o Order) String() string {
	if o == OldestFirst {
		return "oldest"
	}
	return "newest"
}

func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "newest", "newest_first", "desc":
		return NewestFirst, nil
	case "oldest", "oldest_first", "asc":
		return OldestFirst, nil
	default:
		return NewestFirst, fmt.Errorf("invalid order %q (allowed: newest, oldest)", s)
	}
}

// DailySnapshot is the reading recorded once per calendar day.
type DailySnapshot struct {
	Day     string  `json:"day"`
	Reading Reading `json:"reading"`
}
