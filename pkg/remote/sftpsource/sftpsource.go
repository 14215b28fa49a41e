// Package sftpsource implements remote.Source over an SFTP server. Folders are
// directories below the configured root; listings include nested files.
package sftpsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	krfs "github.com/kr/fs"
	"github.com/pkg/sftp"

	"github.com/joe/img-updater/pkg/remote"
)

// Client is the subset of *sftp.Client the source uses.
type Client interface {
	Walk(root string) *krfs.Walker
	Open(path string) (*sftp.File, error)
}

// Source lists and fetches files over SFTP.
type Source struct {
	client Client
	root   string
	closer io.Closer
}

// Open dials the server named by an sftp:// URL.
func Open(rawURL string) (*Source, error) {
	loc, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := Dial(loc.Host, loc.Port, loc.User)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s@%s:%d: %w", loc.User, loc.Host, loc.Port, err)
	}

	return &Source{client: conn.Client(), root: loc.Root, closer: conn}, nil
}

// New wraps an existing client rooted at root.
func New(client Client, root string) *Source {
	return &Source{client: client, root: root}
}

// Close releases the connection if the source opened it.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}

// List walks the folder and returns every regular file in a single page.
func (s *Source) List(ctx context.Context, folder, _ string) (remote.Page, error) {
	dir := path.Join(s.root, folder)

	entries, err := collect(ctx, s.client.Walk(dir), dir)
	if err != nil {
		return remote.Page{}, err
	}

	return remote.Page{Entries: entries}, nil
}

// Fetch opens one file for reading.
func (s *Source) Fetch(_ context.Context, folder, name string) (io.ReadCloser, error) {
	filePath := path.Join(s.root, folder, name)

	file, err := s.client.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) || errors.Is(err, sftp.ErrSSHFxNoSuchFile) {
			return nil, fmt.Errorf("open %s: %w", filePath, remote.ErrNotFound)
		}

		return nil, fmt.Errorf("open %s: %w", filePath, classify(err))
	}

	return &sftpBody{file: file}, nil
}

// collect drains a walker rooted at dir into entries named relative to dir.
func collect(ctx context.Context, walker *krfs.Walker, dir string) ([]remote.Entry, error) {
	var entries []remote.Entry

	for walker.Step() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := walker.Err(); err != nil {
			return nil, fmt.Errorf("walk %s: %w", walker.Path(), classify(err))
		}

		info := walker.Stat()
		if info == nil || !info.Mode().IsRegular() {
			continue
		}

		entries = append(entries, remote.Entry{
			Name:       strings.TrimPrefix(strings.TrimPrefix(walker.Path(), dir), "/"),
			ModifiedAt: remote.TimePtr(info.ModTime()),
			Size:       info.Size(),
		})
	}

	return entries, nil
}

// sftpBody classifies read failures on an open remote file.
type sftpBody struct {
	file *sftp.File
}

func (b *sftpBody) Read(p []byte) (int, error) {
	n, err := b.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, classify(err)
	}

	return n, err //nolint:wrapcheck // io.EOF must be returned unwrapped
}

func (b *sftpBody) Close() error {
	return b.file.Close()
}

func classify(err error) error {
	if errors.Is(err, sftp.ErrSSHFxConnectionLost) || errors.Is(err, sftp.ErrSSHFxNoConnection) {
		return fmt.Errorf("%w: %w", remote.ErrTransientNetwork, err)
	}

	return remote.Classify(err)
}
