// Package fetch performs the HTTP side of both pipelines: manifest
// retrieval and archive download. Each call makes exactly one request;
// there is no retry policy and no timeout beyond the transport default.
package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/internal/logging"
)

// Client wraps an http.Client with the error taxonomy both pipelines
// expect. The zero-value-ready constructor uses http.DefaultClient
// semantics (default transport, no client-level timeout).
type Client struct {
	http *http.Client
}

// NewClient creates a Client using the default transport.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

// NewClientWith creates a Client around an existing http.Client (for
// tests and callers that need transport control).
func NewClientWith(hc *http.Client) *Client {
	return &Client{http: hc}
}

// Fetch performs a single GET and returns the response body. A transport
// failure or non-2xx status is a NetworkError; a cancelled context is a
// UserCancelledError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &snarferrors.UserCancelledError{Step: "fetch"}
		}
		return nil, &snarferrors.NetworkError{URL: url, Err: err}
	}
	return body, nil
}

// Download streams a GET response to dstPath. On any failure, including
// user cancellation mid-transfer, the partially written file is removed
// before the error is returned.
func (c *Client) Download(ctx context.Context, url, dstPath string) (err error) {
	start := time.Now()

	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return &snarferrors.FilesystemError{Op: "create", Path: filepath.Dir(dstPath), Err: err}
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return &snarferrors.FilesystemError{Op: "create", Path: dstPath, Err: err}
	}

	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()

	if copyErr != nil || closeErr != nil {
		os.Remove(dstPath)
		if ctx.Err() != nil {
			return &snarferrors.UserCancelledError{Step: "download"}
		}
		if copyErr != nil {
			return &snarferrors.NetworkError{URL: url, Err: copyErr}
		}
		return &snarferrors.FilesystemError{Op: "write", Path: dstPath, Err: closeErr}
	}

	logging.Download(url, written, time.Since(start))
	return nil
}

func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &snarferrors.NetworkError{URL: url, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &snarferrors.UserCancelledError{Step: "request"}
		}
		return nil, &snarferrors.NetworkError{URL: url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &snarferrors.NetworkError{URL: url, Status: resp.StatusCode}
	}
	return resp, nil
}
