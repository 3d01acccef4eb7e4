package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/skyline-va/crewmap/internal/airport"
	"github.com/skyline-va/crewmap/internal/geo"
)

func main() {
	from := flag.String("from", "", "departure ICAO code")
	to := flag.String("to", "", "arrival ICAO code")
	points := flag.Int("points", 0, "path segments (default depends on distance)")
	source := flag.String("source", airport.DefaultSourceURL, "remote airport dataset URL")
	offline := flag.Bool("offline", false, "resolve against the bundled table only")
	verbose := flag.Bool("v", false, "log dataset activity to stderr")
	flag.Parse()

	if err := run(os.Stdout, *from, *to, *points, *source, *offline, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, from, to string, points int, sourceURL string, offline, verbose bool) error {
	if from == "" || to == "" {
		return errors.New("-from and -to are required")
	}
	if points < 0 || points > 1000 {
		return errors.New("-points must be between 0 and 1000")
	}

	logOut := io.Discard
	if verbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))

	table, err := airport.LoadBundledTable()
	if err != nil {
		return fmt.Errorf("loading bundled table: %w", err)
	}

	var src airport.Source = airport.NewHTTPSource(sourceURL, logger)
	if offline {
		src = airport.SourceFunc(func(context.Context) ([]byte, error) {
			return nil, errors.New("offline mode")
		})
	}
	lookup := airport.NewLookup(table, airport.NewStore(src, airport.DefaultFreshness, logger), logger)

	ctx := context.Background()
	a, err := lookup.Lookup(ctx, from)
	if err != nil {
		return err
	}
	b, err := lookup.Lookup(ctx, to)
	if err != nil {
		return err
	}

	km := geo.DistanceKm(a.Coordinate, b.Coordinate)
	if points == 0 {
		points = geo.PointCount(km)
	}

	fmt.Fprintf(w, "%s  %s (%s)\n", a.ICAO, a.Name, a.Source)
	fmt.Fprintf(w, "%s  %s (%s)\n", b.ICAO, b.Name, b.Source)
	fmt.Fprintf(w, "distance: %.1f km / %.1f nm\n", km, geo.KmToNM(km))
	fmt.Fprintf(w, "zoom: %d\n", geo.OptimalZoom(km))
	fmt.Fprintf(w, "waypoints (%d):\n", points+1)
	for i, p := range geo.GreatCirclePath(a.Coordinate, b.Coordinate, points) {
		fmt.Fprintf(w, "  %3d  %9.4f %10.4f\n", i, p.Lat, p.Lon)
	}
	return nil
}
