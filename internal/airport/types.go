package airport

import (
	"encoding/json"
	"time"

	"github.com/skyline-va/crewmap/internal/geo"
)

// Record sources.
const (
	SourceStatic = "static"
	SourceRemote = "remote"

	// SourceSnapshot marks a Dataset restored from a SnapshotStore.
	SourceSnapshot = "snapshot"
)

// Record is a resolved airport.
type Record struct {
	ICAO string `json:"icao"`
	Name string `json:"name"`
	geo.Coordinate
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Source  string `json:"source"`
}

// Dataset is one fetched copy of the remote airport dataset. Records are
// kept in their raw form and validated on lookup, so one bad entry never
// invalidates the rest. A Dataset is immutable once stored.
type Dataset struct {
	Source    string // SourceRemote or SourceSnapshot
	FetchedAt time.Time
	Records   map[string]json.RawMessage
}
