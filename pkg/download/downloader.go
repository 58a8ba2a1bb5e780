// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-pkgtrust.
//
// go-pkgtrust is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package download retrieves remote key material to local files. Retry
// policy belongs entirely to this package; callers treat any returned error
// as fatal for their operation.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/hashicorp/go-retryablehttp"
)

// Options controls a single download.
type Options struct {
	// FailFast disables retries so transport errors surface immediately.
	FailFast bool

	// Resume continues a partial download when dest already has content.
	Resume bool
}

// Downloader fetches a URL into a local destination file.
type Downloader interface {
	Download(ctx context.Context, url, dest string, opts Options) error
}

// HTTPDownloader is a Downloader over HTTP(S) with retry support.
type HTTPDownloader struct {
	retryMax int
}

// NewHTTPDownloader creates an HTTPDownloader. retryMax bounds the number of
// retries per request when FailFast is not set.
func NewHTTPDownloader(retryMax int) *HTTPDownloader {
	return &HTTPDownloader{retryMax: retryMax}
}

// Download fetches url into dest. With Resume set and a non-empty dest, the
// request asks for the remaining bytes; servers that ignore the range cause
// a clean restart of the file.
func (d *HTTPDownloader) Download(ctx context.Context, url, dest string, opts Options) error {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = d.retryMax
	if opts.FailFast {
		client.RetryMax = 0
	}

	var offset int64
	if opts.Resume {
		if info, err := os.Stat(dest); err == nil {
			offset = info.Size()
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %q: %w", url, err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %q: %w", url, err)
	}
	defer resp.Body.Close()

	var out *os.File
	switch resp.StatusCode {
	case http.StatusPartialContent:
		out, err = os.OpenFile(dest, os.O_WRONLY|os.O_APPEND, 0o600)
	case http.StatusOK:
		out, err = os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	default:
		return fmt.Errorf("download %q: unexpected status %s", url, resp.Status)
	}
	if err != nil {
		return fmt.Errorf("download %q: open %q: %w", url, dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("download %q: %w", url, err)
	}
	return nil
}
