package main

import (
	"context"
	"fmt"

	"github.com/joe/img-updater/internal/config"
	"github.com/joe/img-updater/pkg/remote"
	"github.com/joe/img-updater/pkg/remote/filehost"
	"github.com/joe/img-updater/pkg/remote/listing"
	"github.com/joe/img-updater/pkg/remote/s3source"
	"github.com/joe/img-updater/pkg/remote/sftpsource"
)

// openSource builds the configured backend. The returned function releases it.
func openSource(ctx context.Context, cfg *config.Config) (remote.Source, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.FileHost:
		source, err := filehost.New(filehost.Config{BaseURL: cfg.BaseURL, Owner: cfg.Owner, Branch: cfg.Branch})

		return source, noop, wrapBackend(err)
	case config.Listing:
		source, err := listing.New(listing.Config{APIURL: cfg.APIURL, ContentURL: cfg.ContentURL, Token: cfg.Token})

		return source, noop, wrapBackend(err)
	case config.S3:
		source, err := s3source.New(ctx, s3source.Config{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})

		return source, noop, wrapBackend(err)
	case config.SFTP:
		source, err := sftpsource.Open(cfg.SFTPURL)
		if err != nil {
			return nil, noop, wrapBackend(err)
		}

		return source, func() { _ = source.Close() }, nil
	default:
		return nil, noop, config.Invalid("backend", "unsupported backend %s", cfg.Backend)
	}
}

func wrapBackend(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("failed to open image source: %w", err)
}
