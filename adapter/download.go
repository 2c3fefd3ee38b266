package adapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/studioforge/errs"
)

// Download is a plain buffered HTTP fetch adapter, used for pulling
// reference images and third-party media assets that do not go through
// the workflow engine.
type Download struct {
	client         *http.Client
	defaultTimeout time.Duration
}

// NewDownload builds a Download adapter with the given default timeout.
func NewDownload(client *http.Client, defaultTimeout time.Duration) *Download {
	if client == nil {
		client = http.DefaultClient
	}
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &Download{client: client, defaultTimeout: defaultTimeout}
}

// Fetch retrieves the full response body for url, bounded by timeout (or
// the adapter default when timeout <= 0).
func (d *Download) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.UserInputError, "download.fetch", url, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errs.New(errs.AdapterTransient, "download.fetch", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errs.New(errs.AdapterTransient, "download.fetch", resp.Status, nil)
	}
	if resp.StatusCode >= 400 {
		return nil, errs.New(errs.AdapterFatal, "download.fetch", resp.Status, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.AdapterTransient, "download.fetch", url+": body read failed", err)
	}
	return body, nil
}
