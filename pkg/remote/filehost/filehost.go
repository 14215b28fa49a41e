// Package filehost implements remote.Source over a static raw-file host that publishes
// an update_log.json per repository.
package filehost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joe/img-updater/pkg/remote"
)

// Exported constants.
const (
	// DefaultBaseURL is the raw content host.
	DefaultBaseURL = "https://raw.githubusercontent.com"
	// DefaultBranch is the branch images are served from.
	DefaultBranch = "master"
	// UpdateLogName is the file listing every image and when it last changed.
	UpdateLogName = "update_log.json"
)

// Config holds the file host location.
type Config struct {
	BaseURL string
	Owner   string
	Branch  string
	Client  *http.Client
}

// Source lists repositories through their update log and fetches raw files.
// A "folder" is a repository name.
type Source struct {
	baseURL string
	owner   string
	branch  string
	client  *http.Client
}

// New creates a file host source.
func New(cfg Config) (*Source, error) {
	if cfg.Owner == "" {
		return nil, fmt.Errorf("file host owner is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}

	branch := cfg.Branch
	if branch == "" {
		branch = DefaultBranch
	}

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	return &Source{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		owner:   cfg.Owner,
		branch:  branch,
		client:  client,
	}, nil
}

// logRecord is one element of update_log.json.
type logRecord struct {
	Date  string   `json:"date"`
	Files []string `json:"files"`
}

// List returns every file named in the repository's update log, each with the newest
// date it appears under. The log is served in one piece, so there is never a cursor.
func (s *Source) List(ctx context.Context, folder, _ string) (remote.Page, error) {
	body, err := s.get(ctx, folder, UpdateLogName)
	if err != nil {
		return remote.Page{}, err
	}

	defer func() {
		_ = body.Close()
	}()

	var records []logRecord
	if err := json.NewDecoder(body).Decode(&records); err != nil {
		return remote.Page{}, fmt.Errorf("failed to parse %s for %s: %w", UpdateLogName, folder, remote.Classify(err))
	}

	return remote.Page{Entries: newestDates(records)}, nil
}

// Fetch downloads one raw file from the repository.
func (s *Source) Fetch(ctx context.Context, folder, name string) (io.ReadCloser, error) {
	return s.get(ctx, folder, name)
}

func (s *Source) get(ctx context.Context, repository, file string) (io.ReadCloser, error) {
	fileURL := fmt.Sprintf("%s/%s/%s/%s/%s", s.baseURL, s.owner, repository, s.branch, escapePath(file))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", fileURL, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", fileURL, remote.Classify(err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w", fileURL, remote.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", fileURL, resp.Status)
	}

	return remote.TransientReader(resp.Body), nil
}

// newestDates folds the update log into one entry per file. Files whose every date
// is missing or unparseable become existence-only entries.
func newestDates(records []logRecord) []remote.Entry {
	newest := make(map[string]*time.Time)
	order := make([]string, 0)

	for _, record := range records {
		date, ok := parseDate(record.Date)

		for _, file := range record.Files {
			current, seen := newest[file]
			if !seen {
				order = append(order, file)
				newest[file] = nil
			}

			if ok && (current == nil || date.After(*current)) {
				newest[file] = remote.TimePtr(date)
			}
		}
	}

	entries := make([]remote.Entry, 0, len(order))
	for _, file := range order {
		entries = append(entries, remote.Entry{Name: file, ModifiedAt: newest[file], Size: remote.UnknownSize})
	}

	return entries
}

//nolint:gochecknoglobals // Accepted update log date layouts
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

func escapePath(name string) string {
	parts := strings.Split(name, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}
