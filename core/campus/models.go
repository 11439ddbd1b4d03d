package campus

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

var (
	// errors
	ErrLocationNotFound = errors.New("location not found")
	ErrNoRoute          = errors.New("no walking route found")
)

type Location struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
	PlaceID          string  `json:"placeId,omitempty"`
	Source           string  `json:"source,omitempty"` // gazetteer | geocoder
}

// Point returns the location as an orb point (lng, lat).
func (l Location) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// Key is a stable, rounded representation used in cache keys.
func (l Location) Key() string {
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lng)
}

// Directions as returned by the directions API.
type Directions struct {
	DurationSeconds int         `json:"durationSeconds"`
	DistanceMeters  int         `json:"distanceMeters"`
	Polyline        string      `json:"polyline"`
	Path            []orb.Point `json:"path"` // (lng, lat)
}

// Walk is a walking leg between two buildings.
type Walk struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	FromLoc   Location       `json:"fromLocation"`
	ToLoc     Location       `json:"toLocation"`
	Duration  time.Duration  `json:"-"`
	Minutes   float64        `json:"minutes"`
	Meters    float64        `json:"meters"`
	Path      orb.LineString `json:"path"`
	Estimated bool           `json:"estimated"`
}

// Warning kinds
const (
	WarningConflict = "conflict"
	WarningTight    = "tight"
)

// Warning flags two consecutive meetings on the same day.
type Warning struct {
	Kind        string       `json:"kind"`
	Day         time.Weekday `json:"day"`
	DayName     string       `json:"dayName"`
	First       MeetingRef   `json:"first"`
	Second      MeetingRef   `json:"second"`
	GapMinutes  int          `json:"gapMinutes"`
	WalkMinutes float64      `json:"walkMinutes,omitempty"`
	Estimated   bool         `json:"estimated,omitempty"`
	Message     string       `json:"message"`
}
