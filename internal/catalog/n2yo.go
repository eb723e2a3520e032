package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/douglassimoes/space-station-orbit-simulation/internal/catalog"

// DefaultN2YOBaseURL is the public REST endpoint.
const DefaultN2YOBaseURL = "https://api.n2yo.com/rest/v1"

// maxResponseBytes caps a response body.
const maxResponseBytes = 4 << 20

// N2YOConfig configures the "what's up" query.
type N2YOConfig struct {
	BaseURL   string
	APIKey    string
	AltitudeM float64 // observer altitude
	RadiusDeg int     // search radius, 0-90
	Category  int     // 0 is all categories
	Timeout   time.Duration
}

// DefaultN2YOConfig searches 70 degrees around a sea-level observer in
// category 32.
func DefaultN2YOConfig() N2YOConfig {
	return N2YOConfig{
		BaseURL:   DefaultN2YOBaseURL,
		RadiusDeg: 70,
		Category:  32,
		Timeout:   15 * time.Second,
	}
}

// N2YO fetches objects above the observer from the n2yo REST API.
type N2YO struct {
	cfg    N2YOConfig
	client *http.Client
	logger *slog.Logger
}

// NewN2YO creates a client.
func NewN2YO(cfg N2YOConfig, logger *slog.Logger) *N2YO {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultN2YOBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &N2YO{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "n2yo"),
	}
}

type aboveResponse struct {
	Info  *aboveInfo    `json:"info"`
	Above []aboveRecord `json:"above"`
	Error string        `json:"error"`
}

type aboveInfo struct {
	Category          string `json:"category"`
	TransactionsCount int    `json:"transactionscount"`
	SatCount          int    `json:"satcount"`
}

type aboveRecord struct {
	SatID         *int     `json:"satid"`
	SatName       string   `json:"satname"`
	IntDesignator string   `json:"intDesignator"`
	LaunchDate    string   `json:"launchDate"`
	SatLat        *float64 `json:"satlat"`
	SatLng        *float64 `json:"satlng"`
	SatAlt        *float64 `json:"satalt"`
}

// URL returns the query URL for a ground position. The API takes the key
// after a literal "&" in the path.
func (n *N2YO) URL(latDeg, lonDeg float64) string {
	return fmt.Sprintf("%s/satellite/above/%s/%s/%s/%d/%d/&apiKey=%s",
		strings.TrimRight(n.cfg.BaseURL, "/"),
		strconv.FormatFloat(latDeg, 'f', -1, 64),
		strconv.FormatFloat(lonDeg, 'f', -1, 64),
		strconv.FormatFloat(n.cfg.AltitudeM, 'f', -1, 64),
		n.cfg.RadiusDeg,
		n.cfg.Category,
		n.cfg.APIKey,
	)
}

// FetchNearby queries the objects above (latDeg, lonDeg). Any malformed
// record fails the whole fetch.
func (n *N2YO) FetchNearby(ctx context.Context, latDeg, lonDeg float64) (*Snapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "catalog.n2yo.above",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Float64("observer.lat", latDeg),
			attribute.Float64("observer.lon", lonDeg),
			attribute.Int("n2yo.category", n.cfg.Category),
			attribute.Int("n2yo.radius", n.cfg.RadiusDeg),
		),
	)
	defer span.End()

	snap, err := n.fetch(ctx, latDeg, lonDeg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.objects", len(snap.Objects)))
	return snap, nil
}

func (n *N2YO) fetch(ctx context.Context, latDeg, lonDeg float64) (*Snapshot, error) {
	if n.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.URL(latDeg, lonDeg), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "orbitsim/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// The URL carries the key; report only the operation.
		return nil, fmt.Errorf("n2yo request failed: %w", redactKey(err, n.cfg.APIKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("n2yo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading n2yo response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return nil, fmt.Errorf("n2yo response exceeds %d byte limit", maxResponseBytes)
	}

	objects, info, err := decodeAbove(body)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:          uuid.NewString(),
		Source:      "n2yo",
		FetchedAt:   time.Now().UTC(),
		ObserverLat: latDeg,
		ObserverLon: lonDeg,
		Objects:     objects,
	}
	if info != nil {
		snap.Category = info.Category
		snap.Transactions = info.TransactionsCount
	}
	n.logger.Debug("n2yo fetch complete", "objects", len(objects), "transactions", snap.Transactions)
	return snap, nil
}

// decodeAbove strictly decodes a response body.
func decodeAbove(body []byte) ([]TrackedObject, *aboveInfo, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var r aboveResponse
	if err := dec.Decode(&r); err != nil {
		return nil, nil, fmt.Errorf("decoding n2yo response: %w", err)
	}
	if r.Error != "" {
		return nil, nil, fmt.Errorf("n2yo error: %s", r.Error)
	}

	objects := make([]TrackedObject, 0, len(r.Above))
	for i, rec := range r.Above {
		obj, err := rec.object()
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		objects = append(objects, obj)
	}
	return objects, r.Info, nil
}

func (r aboveRecord) object() (TrackedObject, error) {
	switch {
	case r.SatID == nil:
		return TrackedObject{}, fmt.Errorf("satid: %w", ErrMissingField)
	case r.SatLat == nil:
		return TrackedObject{}, fmt.Errorf("satlat: %w", ErrMissingField)
	case r.SatLng == nil:
		return TrackedObject{}, fmt.Errorf("satlng: %w", ErrMissingField)
	case r.SatAlt == nil:
		return TrackedObject{}, fmt.Errorf("satalt: %w", ErrMissingField)
	}
	return TrackedObject{
		NORADID:    *r.SatID,
		Name:       strings.TrimSpace(r.SatName),
		Designator: r.IntDesignator,
		LaunchDate: r.LaunchDate,
		LatDeg:     *r.SatLat,
		LonDeg:     *r.SatLng,
		AltKm:      *r.SatAlt,
	}, nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}
