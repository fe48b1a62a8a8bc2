// Package webcache contains the http utilities shared by the price providers:
// a disk cache for GET responses that expires with a calendar period, and
// small helpers to read a payload or decode a json one.
package webcache

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/fundtrack/date"
	"github.com/rs/zerolog"
)

// UserAgent is sent by every provider: several finance sites reject the default go agent.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// diskCache implements a simple disk cache for HTTP responses
type diskCache struct {
	base   http.RoundTripper
	dir    string
	period date.Period
	log    zerolog.Logger
}

// RoundTrip implements the http.RoundTripper interface. It checks for a cached
// response on disk first. If a fresh cached response is not found, it proceeds
// with the actual HTTP request and caches the new response if it's successful.
func (c *diskCache) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if req.Method != http.MethodGet {
		return c.base.RoundTrip(req)
	}
	// the key contains the current period identifier, so entries expire with it.
	rangeID := c.period.Range(date.Today()).Identifier()
	key := fmt.Sprintf("%s %s %s", rangeID, req.Method, req.URL.String())
	key = fmt.Sprintf("ftk-%s-%x", c.period, sha1.Sum([]byte(key)))

	cachedResp, err := c.get(key, req)
	if err == nil { // Cache hit
		return cachedResp, nil
	}

	resp, err = c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("method", req.Method).Str("host", req.URL.Host).Str("path", req.URL.Path).Str("status", resp.Status).Msg("http")
	if resp.StatusCode >= 300 {
		return resp, nil
	}

	if err := c.put(key, resp); err != nil {
		c.log.Warn().Err(err).Msg("cache write failed (ignored)")
	}
	return resp, nil
}

// get retrieves a cached response from disk
func (c *diskCache) get(key string, req *http.Request) (resp *http.Response, err error) {
	content, err := os.ReadFile(filepath.Join(c.dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

// put stores a response to disk cache
func (c *diskCache) put(key string, resp *http.Response) (err error) {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key), content, 0o644)
}

// Options configures NewClient.
type Options struct {
	Disabled bool          // no disk cache at all
	Dir      string        // cache folder, defaults to os.TempDir()
	Period   date.Period   // entries expire at the end of the period
	Timeout  time.Duration // defaults to 30s
	Logger   zerolog.Logger
}

// NewClient returns an http.Client whose GET responses are cached on disk
// until the end of the current period.
func NewClient(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if opts.Disabled {
		return client
	}
	dir := opts.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	client.Transport = &diskCache{base: http.DefaultTransport, dir: dir, period: opts.Period, log: opts.Logger}
	return client
}

// Get performs an HTTP GET request to addr with the given extra headers and
// returns the body. Any status but 200 is an error.
func Get(ctx context.Context, client *http.Client, addr string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create http request %q: %w", addr, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot execute http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read http body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	return body, nil
}

// GetJSON performs an HTTP GET request to addr and unmarshals the JSON
// response body into data.
func GetJSON(ctx context.Context, client *http.Client, addr string, header http.Header, data any) error {
	body, err := Get(ctx, client, addr, header)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("cannot decode json from %q: %w", addr, err)
	}
	return nil
}
