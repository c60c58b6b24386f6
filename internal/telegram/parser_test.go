package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frieda566/plant-watering-system/internal/modules/readings/types"
)

var fixedNow = time.Date(2025, time.May, 3, 14, 0, 7, 500_000_000, time.UTC)

func clock() time.Time { return fixedNow }

func intPtr(v int) *int { return &v }

func TestParse_BatchedCompact(t *testing.T) {
	t.Parallel()

	p := NewParser(Compact()).WithClock(clock)
	r, res, err := p.Parse("M:45,T:22,H:55")
	require.NoError(t, err)
	require.Equal(t, Complete, res)
	assert.Equal(t, types.Reading{
		Timestamp:   time.Date(2025, time.May, 3, 14, 0, 7, 0, time.UTC),
		Moisture:    intPtr(45),
		Temperature: intPtr(22),
		Humidity:    intPtr(55),
	}, r)
	assert.Zero(t, p.Pending())
}

func TestParse_BatchedDoesNotCarryOver(t *testing.T) {
	t.Parallel()

	p := NewParser(Compact()).WithClock(clock)
	_, res, err := p.Parse("M:45,T:22")
	require.NoError(t, err)
	assert.Equal(t, Incomplete, res)

	_, res, err = p.Parse("H:55")
	require.NoError(t, err)
	assert.Equal(t, Incomplete, res, "batched lines must supply every field themselves")
}

func TestParse_StreamedVerbose(t *testing.T) {
	t.Parallel()

	p := NewParser(Verbose()).WithClock(clock)

	_, res, err := p.Parse("MOISTURE:40")
	require.NoError(t, err)
	assert.Equal(t, Incomplete, res)

	_, res, err = p.Parse("TEMPERATURE:21")
	require.NoError(t, err)
	assert.Equal(t, Incomplete, res)

	r, res, err := p.Parse("HUMIDITY:50")
	require.NoError(t, err)
	require.Equal(t, Complete, res)
	assert.Equal(t, intPtr(40), r.Moisture)
	assert.Equal(t, intPtr(21), r.Temperature)
	assert.Equal(t, intPtr(50), r.Humidity)
	assert.Nil(t, r.WaterDistance)
	assert.Zero(t, p.Pending())
}

func TestParse_StreamedAnyOrder(t *testing.T) {
	t.Parallel()

	orders := [][]string{
		{"MOISTURE:1", "TEMPERATURE:2", "HUMIDITY:3"},
		{"HUMIDITY:3", "MOISTURE:1", "TEMPERATURE:2"},
		{"TEMPERATURE:2", "HUMIDITY:3", "MOISTURE:1"},
	}
	for _, lines := range orders {
		p := NewParser(Verbose()).WithClock(clock)
		var emitted []types.Reading
		for _, l := range lines {
			r, res, err := p.Parse(l)
			require.NoError(t, err)
			if res == Complete {
				emitted = append(emitted, r)
			}
		}
		require.Len(t, emitted, 1, "order %v", lines)
		assert.Equal(t, intPtr(1), emitted[0].Moisture)
		assert.Equal(t, intPtr(2), emitted[0].Temperature)
		assert.Equal(t, intPtr(3), emitted[0].Humidity)
	}
}

func TestParse_StreamedRepeatedFieldLastWins(t *testing.T) {
	t.Parallel()

	p := NewParser(Tank()).WithClock(clock)
	_, res, _ := p.Parse("MOISTURE:10")
	assert.Equal(t, Incomplete, res)
	_, res, _ = p.Parse("MOISTURE:12")
	assert.Equal(t, Incomplete, res)

	r, res, err := p.Parse("WATER_DIST:87")
	require.NoError(t, err)
	require.Equal(t, Complete, res)
	assert.Equal(t, intPtr(12), r.Moisture)
	assert.Equal(t, intPtr(87), r.WaterDistance)
	assert.Nil(t, r.Temperature)
}

func TestParse_StreamedResetsAfterEmit(t *testing.T) {
	t.Parallel()

	p := NewParser(Tank()).WithClock(clock)
	_, _, _ = p.Parse("MOISTURE:10")
	_, res, _ := p.Parse("WATER_DIST:5")
	require.Equal(t, Complete, res)

	_, res, err := p.Parse("WATER_DIST:6")
	require.NoError(t, err)
	assert.Equal(t, Incomplete, res, "previous moisture must not leak into the next reading")
}

func TestParse_StreamedAcceptsCommaJoinedLine(t *testing.T) {
	t.Parallel()

	p := NewParser(Verbose()).WithClock(clock)
	_, res, err := p.Parse("MOISTURE:40,TEMPERATURE:21")
	require.NoError(t, err)
	assert.Equal(t, Incomplete, res)
	assert.Equal(t, 2, p.Pending())

	_, res, err = p.Parse("HUMIDITY:50")
	require.NoError(t, err)
	assert.Equal(t, Complete, res)
}

func TestParse_EmptyLine(t *testing.T) {
	t.Parallel()

	for _, line := range []string{"", "   ", "\r\n", "\t"} {
		p := NewParser(Compact())
		_, res, err := p.Parse(line)
		assert.NoError(t, err)
		assert.Equal(t, Incomplete, res)
	}
}

func TestParse_MalformedLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{name: "unknown prefix", line: "PH:7"},
		{name: "non-integer value", line: "TEMPERATURE:21.5"},
		{name: "empty value", line: "HUMIDITY:"},
		{name: "missing colon", line: "MOISTURE 40"},
		{name: "one bad segment of many", line: "TEMPERATURE:21,HUMIDITY:abc"},
		{name: "trailing comma", line: "TEMPERATURE:21,"},
		{name: "short prefix from other firmware", line: "M:45"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(Verbose()).WithClock(clock)
			_, res, err := p.Parse("MOISTURE:40")
			require.NoError(t, err)
			require.Equal(t, Incomplete, res)

			_, res, err = p.Parse(tt.line)
			assert.Equal(t, Malformed, res)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Equal(t, 1, p.Pending())

			_, _, _ = p.Parse("TEMPERATURE:21")
			r, res, err := p.Parse("HUMIDITY:50")
			require.NoError(t, err)
			require.Equal(t, Complete, res)
			assert.Equal(t, intPtr(40), r.Moisture)
			assert.Equal(t, intPtr(21), r.Temperature)
		})
	}
}

func TestParse_NegativeAndPaddedValues(t *testing.T) {
	t.Parallel()

	p := NewParser(Compact()).WithClock(clock)
	r, res, err := p.Parse("  M: 45 , T:-3 ,H:55\r")
	require.NoError(t, err)
	require.Equal(t, Complete, res)
	assert.Equal(t, intPtr(-3), r.Temperature)
	assert.Equal(t, intPtr(45), r.Moisture)
}

func TestParse_CustomSchema(t *testing.T) {
	t.Parallel()

	fields, err := ParseFields("SM=moisture, WD=water_distance")
	require.NoError(t, err)
	p := NewParser(Schema{Name: "custom", Mode: Batched, Fields: fields}).WithClock(clock)

	r, res, err := p.Parse("WD:12,SM:33")
	require.NoError(t, err)
	require.Equal(t, Complete, res)
	assert.Equal(t, intPtr(33), r.Moisture)
	assert.Equal(t, intPtr(12), r.WaterDistance)
}

func TestParseFields_Invalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "M", "M=pressure", ",,"} {
		_, err := ParseFields(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestSchema_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Compact().Validate())
	assert.NoError(t, Verbose().Validate())
	assert.NoError(t, Tank().Validate())
	assert.Error(t, Schema{Name: "empty"}.Validate())
	assert.Error(t, Schema{Name: "bad", Fields: map[string]types.Field{"A:B": types.FieldHumidity}}.Validate())
}

func TestPreset(t *testing.T) {
	t.Parallel()

	s, err := Preset(" Tank ")
	require.NoError(t, err)
	assert.Equal(t, "tank", s.Name)
	assert.Equal(t, []types.Field{types.FieldMoisture, types.FieldWaterDistance}, s.Required())

	_, err = Preset("custom")
	assert.Error(t, err)
}

func TestSchema_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "H=humidity,M=moisture,T=temperature", Compact().String())
}
