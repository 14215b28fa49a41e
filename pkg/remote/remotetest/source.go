// Package remotetest provides an in-memory remote.Source for tests.
package remotetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/joe/img-updater/pkg/remote"
)

// Source is an in-memory, paginated remote.Source with fault injection.
// The zero value is not usable; create one with NewSource.
type Source struct {
	mu sync.Mutex

	// PageSize is the number of entries per listing page (<= 0 means everything in one page).
	PageSize int

	folders   map[string]map[string]*object
	listErr   map[string]error
	transient map[string]int
	gates     map[string]chan struct{}
	onFetch   func(folder, name string)

	fetches     map[string]int
	listCalls   int
	inFlight    int
	maxInFlight int
}

type object struct {
	data       []byte
	modifiedAt *time.Time
}

// NewSource creates an empty Source.
func NewSource() *Source {
	return &Source{
		folders:   make(map[string]map[string]*object),
		listErr:   make(map[string]error),
		transient: make(map[string]int),
		gates:     make(map[string]chan struct{}),
		fetches:   make(map[string]int),
	}
}

// Add stores an entry with a known modification time.
func (s *Source) Add(folder, name string, data []byte, modifiedAt time.Time) {
	s.put(folder, name, &object{data: data, modifiedAt: remote.TimePtr(modifiedAt)})
}

// AddExistenceOnly stores an entry without a modification time.
func (s *Source) AddExistenceOnly(folder, name string, data []byte) {
	s.put(folder, name, &object{data: data})
}

// Delete removes an entry after it has been listed, so fetching it reports ErrNotFound.
func (s *Source) Delete(folder, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.folders[folder], name)
}

// FailListing makes every List call for folder fail with err.
func (s *Source) FailListing(folder string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listErr[folder] = err
}

// DropConnection makes the next n fetches of the entry fail with ErrTransientNetwork.
func (s *Source) DropConnection(folder, name string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transient[key(folder, name)] = n
}

// Gate blocks fetches of the entry until the returned function is called.
func (s *Source) Gate(folder, name string) (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.gates[key(folder, name)] = gate
	s.mu.Unlock()

	var once sync.Once

	return func() { once.Do(func() { close(gate) }) }
}

// OnFetch registers a hook invoked at the start of every fetch.
func (s *Source) OnFetch(hook func(folder, name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onFetch = hook
}

// Fetches returns how many times the entry was fetched (including failed attempts).
func (s *Source) Fetches(folder, name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetches[key(folder, name)]
}

// TotalFetches returns the number of fetch attempts across all entries.
func (s *Source) TotalFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.fetches {
		total += n
	}

	return total
}

// ListCalls returns the number of List calls served.
func (s *Source) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listCalls
}

// MaxInFlight returns the highest number of concurrently open fetches observed.
func (s *Source) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.maxInFlight
}

// List implements remote.Source. Cursors are page offsets.
func (s *Source) List(ctx context.Context, folder, cursor string) (remote.Page, error) {
	if err := ctx.Err(); err != nil {
		return remote.Page{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls++

	if err := s.listErr[folder]; err != nil {
		return remote.Page{}, err
	}

	names := make([]string, 0, len(s.folders[folder]))
	for name := range s.folders[folder] {
		names = append(names, name)
	}

	sort.Strings(names)

	start := 0
	if cursor != "" {
		offset, err := strconv.Atoi(cursor)
		if err != nil {
			return remote.Page{}, fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}

		start = offset
	}

	end := len(names)
	if s.PageSize > 0 && start+s.PageSize < end {
		end = start + s.PageSize
	}

	page := remote.Page{}
	for _, name := range names[start:end] {
		obj := s.folders[folder][name]
		page.Entries = append(page.Entries, remote.Entry{
			Name:       name,
			ModifiedAt: obj.modifiedAt,
			Size:       int64(len(obj.data)),
		})
	}

	if end < len(names) {
		page.Cursor = strconv.Itoa(end)
	}

	return page, nil
}

// Fetch implements remote.Source.
func (s *Source) Fetch(ctx context.Context, folder, name string) (io.ReadCloser, error) {
	k := key(folder, name)

	s.mu.Lock()
	s.fetches[k]++
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	gate := s.gates[k]
	hook := s.onFetch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if hook != nil {
		hook(folder, name)
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transient[k] > 0 {
		s.transient[k]--
		return nil, fmt.Errorf("fetch %s: %w", k, remote.ErrTransientNetwork)
	}

	obj, ok := s.folders[folder][name]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", k, remote.ErrNotFound)
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Source) put(folder, name string, obj *object) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.folders[folder] == nil {
		s.folders[folder] = make(map[string]*object)
	}

	s.folders[folder][name] = obj
}

func key(folder, name string) string {
	return folder + "/" + name
}
