package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "10:10AM", want: NewClock(10, 10)},
		{in: "1:25PM", want: NewClock(13, 25)},
		{in: "01:25PM", want: NewClock(13, 25)},
		{in: "12:00PM", want: NewClock(12, 0)},
		{in: "12:05AM", want: NewClock(0, 5)},
		{in: " 9:05am ", want: NewClock(9, 5)},
		{in: "13:40", want: NewClock(13, 40)},
		{in: "", wantErr: true},
		{in: "TBA", wantErr: true},
		{in: "25:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClock_json(t *testing.T) {
	data, err := json.Marshal(NewClock(8, 5))
	require.NoError(t, err)
	assert.Equal(t, `"08:05"`, string(data))

	var c Clock
	require.NoError(t, json.Unmarshal([]byte(`"14:30"`), &c))
	assert.Equal(t, NewClock(14, 30), c)
	assert.Equal(t, 50*time.Minute, NewClock(11, 0).Sub(NewClock(10, 10)))
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in   string
		want []time.Weekday
	}{
		{in: "MWF", want: []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		{in: "TR", want: []time.Weekday{time.Tuesday, time.Thursday}},
		{in: "MTWRF", want: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
		{in: "SSu", want: []time.Weekday{time.Saturday, time.Sunday}},
		{in: "Su", want: []time.Weekday{time.Sunday}},
		{in: "S", want: []time.Weekday{time.Saturday}},
		{in: "TBA", want: nil},
		{in: "", want: nil},
		{in: "MX", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePattern(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("01/20/2026")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("2026-01-20")
	assert.Error(t, err)
}

func TestMeeting_DatesOverlap(t *testing.T) {
	day := func(m, d int) time.Time { return time.Date(2026, time.Month(m), d, 0, 0, 0, 0, time.UTC) }
	firstHalf := Meeting{StartDate: day(1, 20), EndDate: day(3, 13)}
	secondHalf := Meeting{StartDate: day(3, 23), EndDate: day(5, 5)}
	full := Meeting{StartDate: day(1, 20), EndDate: day(5, 5)}

	assert.False(t, firstHalf.DatesOverlap(secondHalf))
	assert.True(t, firstHalf.DatesOverlap(full))
	assert.True(t, secondHalf.DatesOverlap(full))
	assert.True(t, Meeting{}.DatesOverlap(firstHalf), "unknown dates overlap")
}

func TestCourse_Level(t *testing.T) {
	assert.Equal(t, 2000, Course{CatalogNbr: "2110"}.Level())
	assert.Equal(t, 4000, Course{CatalogNbr: "4999"}.Level())
	assert.Equal(t, 0, Course{CatalogNbr: "x"}.Level())
}
