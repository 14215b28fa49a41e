package sftpsource

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort is the SSH port used when the URL names none.
const DefaultPort = 22

// Location is a parsed sftp:// URL.
type Location struct {
	User string
	Host string
	Port int
	Root string
}

// ParseURL parses sftp://user@host[:port]/path.
//
//   - sftp://user@host/path  → path relative to the home directory
//   - sftp://user@host//path → absolute /path
//   - sftp://user@host       → home directory
func ParseURL(raw string) (Location, error) {
	u, err := url.Parse(raw) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return Location{}, fmt.Errorf("invalid SFTP URL: %w", err)
	}

	if u.Scheme != "sftp" {
		return Location{}, fmt.Errorf("expected sftp:// scheme, got %q", u.Scheme)
	}

	if u.User == nil || u.User.Username() == "" {
		return Location{}, fmt.Errorf("SFTP URL must include username (sftp://user@host/path)")
	}

	if u.Hostname() == "" {
		return Location{}, fmt.Errorf("SFTP URL must include host")
	}

	port := DefaultPort
	if portStr := u.Port(); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return Location{}, fmt.Errorf("invalid port number: %w", err)
		}
	}

	root := u.Path

	switch {
	case root == "" || root == "/":
		root = "."
	case strings.HasPrefix(root, "//"):
		root = root[1:]
	default:
		root = strings.TrimPrefix(root, "/")
	}

	return Location{User: u.User.Username(), Host: u.Hostname(), Port: port, Root: root}, nil
}
