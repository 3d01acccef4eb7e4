package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/skyline-va/crewmap/internal/airport"
	"github.com/skyline-va/crewmap/internal/geo"
	"github.com/skyline-va/crewmap/internal/metrics"
)

const (
	defaultRouteCacheSize = 1024
	maxPathPoints         = 1000
)

// routeKey identifies one computed route. points is the requested count,
// zero meaning the distance-based default.
type routeKey struct {
	from, to geo.Coordinate
	points   int
}

// routeGeometry is shared between requests and must not be mutated.
type routeGeometry struct {
	DistanceKm float64      `json:"distance_km"`
	DistanceNM float64      `json:"distance_nm"`
	Zoom       int          `json:"zoom"`
	Path       [][2]float64 `json:"path"`
}

type routeCache struct {
	lru *lru.Cache[routeKey, routeGeometry]
}

func newRouteCache(size int) (*routeCache, error) {
	if size <= 0 {
		size = defaultRouteCacheSize
	}
	c, err := lru.New[routeKey, routeGeometry](size)
	if err != nil {
		return nil, fmt.Errorf("creating route cache: %w", err)
	}
	return &routeCache{lru: c}, nil
}

func (c *routeCache) get(from, to geo.Coordinate, points int) routeGeometry {
	key := routeKey{from: from, to: to, points: points}
	if g, ok := c.lru.Get(key); ok {
		metrics.IncRouteCacheHit()
		return g
	}
	metrics.IncRouteCacheMiss()

	km := geo.DistanceKm(from, to)
	n := points
	if n <= 0 {
		n = geo.PointCount(km)
	}
	coords := geo.GreatCirclePath(from, to, n)
	path := make([][2]float64, len(coords))
	for i, p := range coords {
		path[i] = [2]float64{p.Lat, p.Lon}
	}

	g := routeGeometry{
		DistanceKm: km,
		DistanceNM: geo.KmToNM(km),
		Zoom:       geo.OptimalZoom(km),
		Path:       path,
	}
	c.lru.Add(key, g)
	return g
}

// parsePoints reads the optional points query parameter. Zero means absent.
func parsePoints(r *http.Request) (int, error) {
	v := r.URL.Query().Get("points")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxPathPoints {
		return 0, fmt.Errorf("points must be an integer between 1 and %d", maxPathPoints)
	}
	return n, nil
}

func airportHandler(logger *slog.Logger, resolver Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := resolver.Lookup(r.Context(), r.PathValue("icao"))
		if err != nil {
			writeLookupError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

type airportRouteResponse struct {
	From airport.Record `json:"from"`
	To   airport.Record `json:"to"`
	routeGeometry
}

func airportRouteHandler(logger *slog.Logger, resolver Resolver, routes *routeCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") == "" || q.Get("to") == "" {
			writeError(w, http.StatusBadRequest, "from and to are required")
			return
		}
		points, err := parsePoints(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		from, err := resolver.Lookup(r.Context(), q.Get("from"))
		if err != nil {
			writeLookupError(w, logger, err)
			return
		}
		to, err := resolver.Lookup(r.Context(), q.Get("to"))
		if err != nil {
			writeLookupError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, airportRouteResponse{
			From:          from,
			To:            to,
			routeGeometry: routes.get(from.Coordinate, to.Coordinate, points),
		})
	}
}

type coordinateRouteResponse struct {
	From geo.Coordinate `json:"from"`
	To   geo.Coordinate `json:"to"`
	routeGeometry
}

func coordinateRouteHandler(routes *routeCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := parseCoordinate(r, "from_lat", "from_lon")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		to, err := parseCoordinate(r, "to_lat", "to_lon")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		points, err := parsePoints(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, coordinateRouteResponse{
			From:          from,
			To:            to,
			routeGeometry: routes.get(from, to, points),
		})
	}
}

func parseCoordinate(r *http.Request, latKey, lonKey string) (geo.Coordinate, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get(latKey), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%s must be a number", latKey)
	}
	lon, err := strconv.ParseFloat(q.Get(lonKey), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%s must be a number", lonKey)
	}
	c := geo.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%s/%s out of range", latKey, lonKey)
	}
	return c, nil
}
