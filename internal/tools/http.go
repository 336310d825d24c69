package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "calibtrack/internal/log"
	"calibtrack/internal/model"
)

// cacheMeta is the HTTP validator state of the last good response.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HTTPSource fetches the inventory from a JSON endpoint. It sends
// If-None-Match / If-Modified-Since from a disk cache and falls back to the
// cached body when the endpoint is unreachable or answers with an error.
type HTTPSource struct {
	URL      string
	CacheDir string
	Loc      *time.Location

	client *http.Client
}

func NewHTTPSource(url, cacheDir string, loc *time.Location) *HTTPSource {
	if cacheDir == "" {
		cacheDir = "./data/tools-cache"
	}
	return &HTTPSource{
		URL:      url,
		CacheDir: cacheDir,
		Loc:      loc,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *HTTPSource) Name() string { return "http " + redactURL(s.URL) }

func (s *HTTPSource) List(ctx context.Context) ([]model.Tool, error) {
	body, _, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := DecodeRecords(body)
	if err != nil {
		return nil, err
	}
	return Normalize(recs, s.Loc), nil
}

// fetch returns the payload and whether it came from the cache.
func (s *HTTPSource) fetch(ctx context.Context) ([]byte, bool, error) {
	if s.URL == "" {
		return nil, false, errors.New("tools source URL is empty")
	}

	dir := s.cachePath()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, false, err
	}
	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.json"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	client := s.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Error("tools fetch network error, using cached body", err, "url", redactURL(s.URL))
			return cached, true, nil
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, err
		}
		newMeta := cacheMeta{
			URL:          s.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(dir, newMeta, body); err != nil {
			appLog.Error("tools cache save failed", err, "url", redactURL(s.URL))
		}
		appLog.Debug("tools fetch success", "url", redactURL(s.URL), "bytes", len(body))
		return body, false, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, false, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Debug("tools fetch not modified; using cache", "url", redactURL(s.URL))
		return cached, true, nil

	default:
		if len(cached) > 0 {
			appLog.Error("tools fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(s.URL), "status", resp.StatusCode)
			return cached, true, nil
		}
		return nil, false, fmt.Errorf("tools fetch: %s", resp.Status)
	}
}

func (s *HTTPSource) cachePath() string {
	sum := sha256.Sum256([]byte(s.URL))
	return filepath.Join(s.CacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func saveCache(dir string, meta cacheMeta, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body.json"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps scheme and host only: https://example.com/...(redacted)
func redactURL(u string) string {
	_, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "...(redacted)"
	}
	host, _, _ := strings.Cut(rest, "/")
	return u[:len(u)-len(rest)] + host + "/...(redacted)"
}
