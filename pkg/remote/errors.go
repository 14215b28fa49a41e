package remote

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Exported variables.
var (
	ErrNotFound         = errors.New("remote entry not found")
	ErrTransientNetwork = errors.New("connection dropped")
)

// ListingError reports that a folder listing could not be completed.
type ListingError struct {
	Folder string
	Err    error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing %s: %v", e.Folder, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Message fragments shared by all classifiers
	transientMessages = []string{
		"socket hang up",
		"connection reset",
		"broken pipe",
		"connection lost",
		"unexpected eof",
	}
)

// IsTransient reports whether err is the "connection dropped mid-transfer" condition
// that warrants exactly one automatic retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransientNetwork) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "read" {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// Classify wraps err with ErrTransientNetwork when it is a dropped connection,
// so callers can test it with errors.Is.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrTransientNetwork) || !IsTransient(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransientNetwork, err)
}

// TransientReader wraps a response body so that mid-stream connection drops are
// reported as ErrTransientNetwork.
func TransientReader(body io.ReadCloser) io.ReadCloser {
	return &classifyingReader{body: body}
}

type classifyingReader struct {
	body io.ReadCloser
}

func (r *classifyingReader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, Classify(err)
	}

	return n, err //nolint:wrapcheck // io.EOF must be returned unwrapped
}

func (r *classifyingReader) Close() error {
	return r.body.Close()
}
