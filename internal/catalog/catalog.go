// Package catalog fetches the Flathub application catalog.
//
// A fetch is a single GET against the catalog endpoint. A 200 response is
// decoded into entries; any other status yields an empty catalog and no
// error, so a broken catalog never hides local state. Transport failures are
// different: they surface as ErrUnavailable so callers can keep a stale view
// and retry later.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// DefaultURL is the Flathub v1 application listing.
const DefaultURL = "https://flathub.org/api/v1/apps"

var (
	// ErrUnavailable means the catalog endpoint could not be reached.
	ErrUnavailable = errors.New("catalog unavailable")

	// ErrDecode means a 200 response carried a body that is not a catalog.
	ErrDecode = errors.New("catalog response could not be decoded")
)

// Entry is one application published in the catalog.
type Entry struct {
	ID      string `json:"flatpakAppId"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
	IconURL string `json:"iconDesktopUrl"`
	Version string `json:"currentReleaseVersion"`
}

// Options configures a Fetcher.
type Options struct {
	URL       string
	Timeout   time.Duration
	UserAgent string

	// RetryMax bounds retries of transport failures. Non-200 responses are
	// never retried.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultOptions returns options for the public Flathub endpoint.
func DefaultOptions() Options {
	return Options{
		URL:          DefaultURL,
		Timeout:      30 * time.Second,
		UserAgent:    "flatshelf/1.0",
		RetryMax:     2,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

// Fetcher retrieves the catalog.
type Fetcher struct {
	url    string
	resty  *resty.Client
	logger *zap.Logger
}

// New creates a Fetcher. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if opts.URL == "" {
		opts.URL = defaults.URL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = opts.RetryWaitMax
	}
	retryClient.CheckRetry = retryTransportErrors
	retryClient.Logger = leveledLogger{logger.Sugar()}

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json")

	return &Fetcher{
		url:    opts.URL,
		resty:  restyClient,
		logger: logger,
	}
}

// URL returns the endpoint the fetcher queries.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch performs one request against the catalog endpoint.
func (f *Fetcher) Fetch(ctx context.Context) ([]Entry, error) {
	start := time.Now()
	resp, err := f.resty.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrUnavailable, f.url, err)
	}

	if resp.StatusCode() != http.StatusOK {
		f.logger.Warn("catalog returned non-success status, treating catalog as empty",
			zap.String("url", f.url),
			zap.Int("status", resp.StatusCode()))
		return []Entry{}, nil
	}

	entries, err := Decode(resp.Body())
	if err != nil {
		return nil, err
	}

	f.logger.Debug("catalog fetched",
		zap.Int("entries", len(entries)),
		zap.Duration("elapsed", time.Since(start)))
	return entries, nil
}

// Decode parses a catalog response body. Entries without an identifier
// cannot be joined with local state and are dropped.
func Decode(body []byte) ([]Entry, error) {
	var raw []Entry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// retryTransportErrors retries connection-level failures only. A response of
// any status is returned to the caller unchanged.
func retryTransportErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
