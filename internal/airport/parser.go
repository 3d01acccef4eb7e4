package airport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/skyline-va/crewmap/internal/geo"
)

// ParseDataset decodes a remote dataset body: a JSON object keyed by ICAO
// code. Values are kept raw; see ParseRecord.
func ParseDataset(data []byte) (map[string]json.RawMessage, error) {
	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding airport dataset: %w", err)
	}
	if records == nil {
		return nil, fmt.Errorf("decoding airport dataset: top-level value is not an object")
	}
	return records, nil
}

type rawRecord struct {
	ICAO    string          `json:"icao"`
	Name    string          `json:"name"`
	City    string          `json:"city"`
	Country string          `json:"country"`
	Lat     json.RawMessage `json:"lat"`
	Lon     json.RawMessage `json:"lon"`
}

// ParseRecord converts one raw remote record into a Record. The record
// must carry numeric, in-range lat and lon; anything else is reported as
// ErrMalformedRecord. key is the dataset key the record was stored under
// and is used when the record has no icao field of its own.
func ParseRecord(key string, raw json.RawMessage) (Record, error) {
	var rr rawRecord
	if err := json.Unmarshal(raw, &rr); err != nil {
		return Record{}, malformed(key, err)
	}

	lat, ok := number(rr.Lat)
	if !ok {
		return Record{}, malformed(key, errors.New("lat is not a number"))
	}
	lon, ok := number(rr.Lon)
	if !ok {
		return Record{}, malformed(key, errors.New("lon is not a number"))
	}

	c := geo.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return Record{}, malformed(key, fmt.Errorf("coordinate %.4f,%.4f out of range", lat, lon))
	}

	icao := strings.ToUpper(strings.TrimSpace(rr.ICAO))
	if icao == "" {
		icao = key
	}

	return Record{
		ICAO:       icao,
		Name:       strings.TrimSpace(rr.Name),
		Coordinate: c,
		City:       strings.TrimSpace(rr.City),
		Country:    strings.TrimSpace(rr.Country),
		Source:     SourceRemote,
	}, nil
}

func malformed(key string, err error) error {
	return &LookupError{Op: "parse record", ICAO: key, Kind: ErrMalformedRecord, Err: err}
}

// number reports the value of raw when it is a JSON number. Strings, null
// and missing fields are rejected.
func number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
