package airport

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

// StaticTable is the first-priority airport source.
type StaticTable interface {
	Get(icao string) (Record, bool)
}

// MapTable is an in-memory StaticTable keyed by upper-case ICAO code.
type MapTable map[string]Record

// NewMapTable indexes records by ICAO code and marks them as static.
// Later records replace earlier ones with the same code.
func NewMapTable(records ...Record) MapTable {
	t := make(MapTable, len(records))
	for _, r := range records {
		r.ICAO = strings.ToUpper(r.ICAO)
		r.Source = SourceStatic
		t[r.ICAO] = r
	}
	return t
}

// Get returns the record for an already normalized ICAO code.
func (t MapTable) Get(icao string) (Record, bool) {
	r, ok := t[icao]
	return r, ok
}

// bundledAirports holds the airline's hubs and scheduled destinations.
//
//go:embed data/airports.json
var bundledAirports []byte

// LoadBundledTable parses the airport table compiled into the binary.
func LoadBundledTable() (MapTable, error) {
	var records []Record
	if err := json.Unmarshal(bundledAirports, &records); err != nil {
		return nil, fmt.Errorf("decoding bundled airports: %w", err)
	}
	for _, r := range records {
		if len(r.ICAO) != 4 || !r.Coordinate.Valid() {
			return nil, fmt.Errorf("bundled airport %q has invalid code or coordinate", r.ICAO)
		}
	}
	return NewMapTable(records...), nil
}
