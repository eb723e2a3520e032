package tle

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultSourceURL serves the station group, which includes the ISS.
	DefaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php?GROUP=stations&FORMAT=tle"

	// A full active-satellite catalog is under 2 MiB.
	maxBodyBytes = 8 << 20

	userAgent = "orbitsim/1 (+element fetcher)"
)

// ErrNoElementLines means a source answered 200 without a single line-1
// record, which is how element services report an unknown group.
var ErrNoElementLines = errors.New("response holds no element lines")

// StatusError is a non-200 answer from an element source.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("element source %s answered %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Fetcher downloads catalog files from a primary URL and optional extra
// URLs. Extra URLs are best effort.
type Fetcher struct {
	sourceURL  string
	extraURLs  []string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewFetcher(sourceURL string, logger *slog.Logger, extraURLs ...string) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	return &Fetcher{
		sourceURL:  sourceURL,
		extraURLs:  extraURLs,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "element_fetcher"),
	}
}

// SourceURL returns the primary URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch downloads the primary source and appends every extra source that
// succeeds. Only the primary source can fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	body, err := f.get(ctx, f.sourceURL)
	if err != nil {
		return nil, err
	}
	for _, u := range f.extraURLs {
		extra, err := f.get(ctx, u)
		if err != nil {
			f.logger.Warn("extra element source skipped", "url", u, "error", err)
			continue
		}
		if !bytes.HasSuffix(body, []byte("\n")) {
			body = append(body, '\n')
		}
		body = append(body, extra...)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("element request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain")

	begin := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching elements: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading elements from %s: %w", url, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("elements from %s exceed the %d byte limit", url, maxBodyBytes)
	}
	if !hasElementLine(body) {
		return nil, fmt.Errorf("%s: %w", url, ErrNoElementLines)
	}

	f.logger.Debug("elements downloaded", "url", url, "bytes", len(body), "duration_ms", time.Since(begin).Milliseconds())
	return body, nil
}

func hasElementLine(body []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 256), 1<<20)
	for sc.Scan() {
		if line := sc.Bytes(); len(line) >= LineLength && line[0] == '1' && line[1] == ' ' {
			return true
		}
	}
	return false
}
