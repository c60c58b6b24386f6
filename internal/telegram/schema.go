package telegram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

// Mode selects how telegram lines are grouped into readings.
type Mode int

const (
	// Streamed firmware sends fields on separate lines; the parser
	// accumulates until every required field has arrived.
	Streamed Mode = iota
	// Batched firmware sends all fields comma-joined on one line.
	Batched
)

func (m Mode) String() string {
	if m == Batched {
		return "batched"
	}
	return "streamed"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "streamed", "stream":
		return Streamed, nil
	case "batched", "batch":
		return Batched, nil
	default:
		return Streamed, fmt.Errorf("invalid telegram mode %q (allowed: streamed, batched)", s)
	}
}

// Schema maps telegram prefixes to reading fields for one firmware revision.
type Schema struct {
	Name   string
	Mode   Mode
	Fields map[string]types.Field
}

// Required returns the distinct fields the schema maps to, in column order.
func (s Schema) Required() []types.Field {
	seen := make(map[types.Field]bool, len(s.Fields))
	for _, f := range s.Fields {
		seen[f] = true
	}
	var out []types.Field
	for _, f := range types.Fields {
		if seen[f] {
			out = append(out, f)
		}
	}
	return out
}

func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %q: no fields", s.Name)
	}
	for prefix := range s.Fields {
		if prefix == "" || strings.ContainsAny(prefix, ":, \t") {
			return fmt.Errorf("schema %q: invalid prefix %q", s.Name, prefix)
		}
	}
	return nil
}

// String renders the schema in the same form ParseFields accepts.
func (s Schema) String() string {
	prefixes := make([]string, 0, len(s.Fields))
	for p := range s.Fields {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	parts := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		parts = append(parts, p+"="+string(s.Fields[p]))
	}
	return strings.Join(parts, ",")
}

// Compact is the original firmware: "M:45,T:22,H:55".
func Compact() Schema {
	return Schema{
		Name: "compact",
		Mode: Batched,
		Fields: map[string]types.Field{
			"M": types.FieldMoisture,
			"T": types.FieldTemperature,
			"H": types.FieldHumidity,
		},
	}
}

// Verbose streams one long-named field per line.
func Verbose() Schema {
	return Schema{
		Name: "verbose",
		Mode: Streamed,
		Fields: map[string]types.Field{
			"MOISTURE":    types.FieldMoisture,
			"TEMPERATURE": types.FieldTemperature,
			"HUMIDITY":    types.FieldHumidity,
		},
	}
}

// Tank is the watering-tank firmware reporting moisture and water level.
func Tank() Schema {
	return Schema{
		Name: "tank",
		Mode: Streamed,
		Fields: map[string]types.Field{
			"MOISTURE":   types.FieldMoisture,
			"WATER_DIST": types.FieldWaterDistance,
		},
	}
}

// Preset returns a named built-in schema.
func Preset(name string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "compact":
		return Compact(), nil
	case "verbose":
		return Verbose(), nil
	case "tank":
		return Tank(), nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q (allowed: compact, verbose, tank, custom)", name)
	}
}

// ParseFields parses "PREFIX=field,PREFIX=field" into a prefix map.
func ParseFields(s string) (map[string]types.Field, error) {
	out := make(map[string]types.Field)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		prefix, name, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid schema field %q (expected PREFIX=field)", part)
		}
		f, err := types.ParseField(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out[strings.TrimSpace(prefix)] = f
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty schema field list")
	}
	return out, nil
}
