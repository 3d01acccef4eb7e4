package airport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skyline-va/crewmap/internal/metrics"
)

const (
	// DefaultSourceURL serves a JSON object of ~29k airports keyed by ICAO.
	DefaultSourceURL = "https://raw.githubusercontent.com/mwgg/Airports/master/airports.json"

	// FetchTimeout bounds a single dataset download.
	FetchTimeout = 10 * time.Second

	maxBodyBytes = 64 << 20

	defaultBreakerFailures = 5
	defaultBreakerCooldown = 60 * time.Second
)

// ErrSourceUnavailable is returned while the circuit breaker is open.
var ErrSourceUnavailable = errors.New("airport source unavailable: circuit breaker is open")

// Source yields the raw remote dataset.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]byte, error) { return f(ctx) }

// HTTPSource downloads the dataset with a single GET, guarded by a
// circuit breaker so an unreachable source fails fast.
type HTTPSource struct {
	sourceURL  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger

	breakerFailures uint32
	breakerCooldown time.Duration
}

// SourceOption configures an HTTPSource.
type SourceOption func(*HTTPSource)

// WithHTTPClient replaces the default client (10 s timeout).
func WithHTTPClient(c *http.Client) SourceOption {
	return func(s *HTTPSource) { s.httpClient = c }
}

// WithBreaker opens the breaker after failures consecutive errors and
// keeps it open for cooldown.
func WithBreaker(failures uint32, cooldown time.Duration) SourceOption {
	return func(s *HTTPSource) {
		s.breakerFailures = failures
		s.breakerCooldown = cooldown
	}
}

// NewHTTPSource creates an HTTPSource for sourceURL, or DefaultSourceURL if empty.
func NewHTTPSource(sourceURL string, logger *slog.Logger, opts ...SourceOption) *HTTPSource {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	s := &HTTPSource{
		sourceURL: sourceURL,
		httpClient: &http.Client{
			Timeout: FetchTimeout,
		},
		logger:          logger,
		breakerFailures: defaultBreakerFailures,
		breakerCooldown: defaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "airport-source",
		MaxRequests: 1,
		Timeout:     s.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.breakerFailures
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up says nothing about the source.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed",
				"component", "airport",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.SetBreakerState(name, int(to))
		},
	})
	return s
}

// SourceURL returns the configured source URL.
func (s *HTTPSource) SourceURL() string {
	return s.sourceURL
}

// Fetch performs an HTTP GET to retrieve the raw dataset.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	body, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrSourceUnavailable
		}
		return nil, err
	}
	return body.([]byte), nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching airport dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, s.sourceURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response from %s exceeds %d byte limit", s.sourceURL, maxBodyBytes)
	}

	return body, nil
}
