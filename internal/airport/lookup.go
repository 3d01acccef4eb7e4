package airport

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/skyline-va/crewmap/internal/metrics"
)

// DatasetProvider yields the current remote dataset, fetching as needed.
// *Store implements it.
type DatasetProvider interface {
	Dataset(ctx context.Context) (*Dataset, error)
}

// Lookup resolves ICAO codes against the static table first and the
// remote dataset second.
type Lookup struct {
	static   StaticTable
	datasets DatasetProvider
	logger   *slog.Logger
}

// NewLookup creates a Lookup. static may be nil.
func NewLookup(static StaticTable, datasets DatasetProvider, logger *slog.Logger) *Lookup {
	return &Lookup{
		static:   static,
		datasets: datasets,
		logger:   logger,
	}
}

// NormalizeICAO upper-cases code and checks that it is exactly four characters.
func NormalizeICAO(code string) (string, error) {
	if utf8.RuneCountInString(code) != 4 {
		return "", &LookupError{Op: "lookup", ICAO: code, Kind: ErrInvalidInput}
	}
	return strings.ToUpper(code), nil
}

// Lookup returns the airport for code. Errors match ErrInvalidInput,
// ErrNotFound, ErrMalformedRecord or ErrFetchFailed.
func (l *Lookup) Lookup(ctx context.Context, code string) (Record, error) {
	icao, err := NormalizeICAO(code)
	if err != nil {
		metrics.IncAirportLookup("none", "invalid")
		return Record{}, err
	}

	if l.static != nil {
		if r, ok := l.static.Get(icao); ok {
			metrics.IncAirportLookup(SourceStatic, "hit")
			return r, nil
		}
	}

	ds, err := l.datasets.Dataset(ctx)
	if err != nil {
		metrics.IncAirportLookup(SourceRemote, "fetch_failed")
		var le *LookupError
		if errors.As(err, &le) {
			return Record{}, &LookupError{Op: "lookup", ICAO: icao, Kind: le.Kind, Err: le.Err}
		}
		return Record{}, &LookupError{Op: "lookup", ICAO: icao, Kind: ErrFetchFailed, Err: err}
	}

	raw, ok := ds.Records[icao]
	if !ok {
		metrics.IncAirportLookup("none", "not_found")
		return Record{}, &LookupError{Op: "lookup", ICAO: icao, Kind: ErrNotFound}
	}

	r, err := ParseRecord(icao, raw)
	if err != nil {
		metrics.IncAirportLookup(SourceRemote, "malformed")
		l.logger.Error("malformed remote airport record",
			"component", "airport",
			"icao", icao,
			"error", err,
		)
		return Record{}, err
	}

	metrics.IncAirportLookup(SourceRemote, "hit")
	return r, nil
}
