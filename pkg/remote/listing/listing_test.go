package listing_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/img-updater/pkg/remote"
	"github.com/joe/img-updater/pkg/remote/listing"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/files/list_folder", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req["path"] != "/field" {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error_summary": "path/not_found/"}`)
			return
		}

		_, _ = io.WriteString(w, `{
			"entries": [
				{".tag": "file", "name": "1.png", "client_modified": "2018-01-02T03:04:05Z", "size": 10},
				{".tag": "folder", "name": "sub"}
			],
			"cursor": "c1",
			"has_more": true
		}`)
	})

	mux.HandleFunc("/files/list_folder/continue", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req["cursor"] != "c1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		_, _ = io.WriteString(w, `{
			"entries": [{".tag": "file", "name": "2.png", "client_modified": "2018-02-02T03:04:05Z"}],
			"cursor": "c2",
			"has_more": false
		}`)
	})

	mux.HandleFunc("/files/download", func(w http.ResponseWriter, r *http.Request) {
		var arg map[string]string
		_ = json.Unmarshal([]byte(r.Header.Get(listing.APIArgHeader)), &arg)

		if arg["path"] != "/field/1.png" {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"error_summary": "path/not_found/.."}`)
			return
		}

		_, _ = io.WriteString(w, "png-bytes")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func newSource(t *testing.T, server *httptest.Server) *listing.Source {
	t.Helper()

	src, err := listing.New(listing.Config{APIURL: server.URL, ContentURL: server.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return src
}

func TestList_FollowsCursorAcrossPages(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := newSource(t, newAPI(t))

	entries, err := remote.Drain(context.Background(), src, "/Field")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(entries).To(HaveLen(2), "folders are skipped, both pages are collected")
	g.Expect(entries[0].Name).To(Equal("1.png"))
	g.Expect(entries[0].Size).To(Equal(int64(10)))
	g.Expect(entries[0].ModifiedAt).ToNot(BeNil())
	g.Expect(entries[1].Size).To(Equal(remote.UnknownSize))
}

func TestList_FirstPageCursorOnlyWhenHasMore(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := newSource(t, newAPI(t))

	page, err := src.List(context.Background(), "/field", "")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(page.Cursor).To(Equal("c1"))

	page, err = src.List(context.Background(), "/field", "c1")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(page.Cursor).To(BeEmpty())
}

func TestList_UnknownFolderFails(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := newSource(t, newAPI(t))

	_, err := src.List(context.Background(), "/nope", "")
	g.Expect(err).To(HaveOccurred())
}

func TestFetch(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := newSource(t, newAPI(t))

	body, err := src.Fetch(context.Background(), "/field", "1.png")
	g.Expect(err).ShouldNot(HaveOccurred())

	data, err := io.ReadAll(body)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(string(data)).To(Equal("png-bytes"))
	g.Expect(body.Close()).To(Succeed())

	_, err = src.Fetch(context.Background(), "/field", "gone.png")
	g.Expect(err).To(MatchError(remote.ErrNotFound))
}

func TestNew_RequiresToken(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := listing.New(listing.Config{})
	g.Expect(err).To(HaveOccurred())
}
