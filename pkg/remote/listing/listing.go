// Package listing implements remote.Source over a folder-listing HTTP API with cursor
// pagination (list_folder / list_folder/continue) and bearer-token authentication.
package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joe/img-updater/pkg/remote"
)

// Exported constants.
const (
	DefaultAPIURL     = "https://api.dropboxapi.com/2"
	DefaultContentURL = "https://content.dropboxapi.com/2"
	// APIArgHeader carries the download arguments on content requests.
	APIArgHeader = "Dropbox-API-Arg"
)

// Config holds the API endpoints and credentials.
type Config struct {
	APIURL     string
	ContentURL string
	Token      string
	Client     *http.Client
}

// Source talks to the folder-listing API. A "folder" is an API path such as "/field".
type Source struct {
	apiURL     string
	contentURL string
	token      string
	client     *http.Client
}

// New creates a listing API source.
func New(cfg Config) (*Source, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("listing API access token is required")
	}

	source := &Source{
		apiURL:     strings.TrimSuffix(orDefault(cfg.APIURL, DefaultAPIURL), "/"),
		contentURL: strings.TrimSuffix(orDefault(cfg.ContentURL, DefaultContentURL), "/"),
		token:      cfg.Token,
		client:     cfg.Client,
	}

	if source.client == nil {
		source.client = http.DefaultClient
	}

	return source, nil
}

type listResponse struct {
	Entries []struct {
		Tag            string `json:".tag"`
		Name           string `json:"name"`
		ClientModified string `json:"client_modified"`
		Size           *int64 `json:"size"`
	} `json:"entries"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

// List returns one page of the folder. The cursor is only handed back while the API
// reports more entries.
func (s *Source) List(ctx context.Context, folder, cursor string) (remote.Page, error) {
	endpoint := "/files/list_folder"
	payload := map[string]string{"path": strings.ToLower(folder)}

	if cursor != "" {
		endpoint = "/files/list_folder/continue"
		payload = map[string]string{"cursor": cursor}
	}

	resp, err := s.postJSON(ctx, s.apiURL+endpoint, payload)
	if err != nil {
		return remote.Page{}, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return remote.Page{}, fmt.Errorf("%s %s: %s", endpoint, folder, describe(resp))
	}

	var decoded listResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return remote.Page{}, fmt.Errorf("failed to decode %s response: %w", endpoint, remote.Classify(err))
	}

	page := remote.Page{Entries: make([]remote.Entry, 0, len(decoded.Entries))}

	for _, item := range decoded.Entries {
		if item.Tag == "folder" || item.Tag == "deleted" {
			continue
		}

		entry := remote.Entry{Name: item.Name, Size: remote.UnknownSize}
		if modified, err := time.Parse(time.RFC3339, item.ClientModified); err == nil {
			entry.ModifiedAt = remote.TimePtr(modified)
		}

		if item.Size != nil {
			entry.Size = *item.Size
		}

		page.Entries = append(page.Entries, entry)
	}

	if decoded.HasMore {
		page.Cursor = decoded.Cursor
	}

	return page, nil
}

// Fetch downloads <folder>/<name> from the content endpoint.
func (s *Source) Fetch(ctx context.Context, folder, name string) (io.ReadCloser, error) {
	filePath := strings.ToLower(folder) + "/" + name

	arg, err := json.Marshal(map[string]string{"path": filePath})
	if err != nil {
		return nil, fmt.Errorf("failed to encode download argument: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.contentURL+"/files/download", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set(APIArgHeader, string(arg))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", filePath, remote.Classify(err))
	}

	if resp.StatusCode == http.StatusOK {
		return remote.TransientReader(resp.Body), nil
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	detail := describe(resp)
	if resp.StatusCode == http.StatusNotFound ||
		(resp.StatusCode == http.StatusConflict && strings.Contains(detail, "not_found")) {
		return nil, fmt.Errorf("download %s: %w", filePath, remote.ErrNotFound)
	}

	return nil, fmt.Errorf("download %s: %s", filePath, detail)
}

func (s *Source) postJSON(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint, remote.Classify(err))
	}

	return resp, nil
}

// describe renders a failed response as "status: body" (body truncated).
func describe(resp *http.Response) string {
	const maxBody = 512

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	return fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
