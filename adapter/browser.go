package adapter

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kadirpekel/studioforge/errs"
)

// Browser drives a headless Chromium instance to capture channel
// screenshots that no JSON API exposes: the rendered videos-grid page and
// individual thumbnail elements on it.
type Browser struct {
	execPath string
	timeout  time.Duration
}

// NewBrowser builds a Browser. execPath may be empty to let the launcher
// find/download its own Chromium; timeout defaults to 30s per page.
func NewBrowser(execPath string, timeout time.Duration) *Browser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Browser{execPath: execPath, timeout: timeout}
}

func (b *Browser) open(ctx context.Context, pageURL string) (*rod.Browser, *rod.Page, error) {
	l := launcher.New().Headless(true)
	if b.execPath != "" {
		l = l.Bin(b.execPath)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, errs.New(errs.AdapterFatal, "browser.launch", pageURL, err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, nil, errs.New(errs.AdapterTransient, "browser.connect", pageURL, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		_ = browser.Close()
		return nil, nil, errs.New(errs.AdapterTransient, "browser.page", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = browser.Close()
		return nil, nil, errs.New(errs.AdapterTransient, "browser.wait_load", pageURL, err)
	}
	return browser, page, nil
}

// ScreenshotPage captures the full rendered page at pageURL as a
// base64-encoded PNG.
func (b *Browser) ScreenshotPage(ctx context.Context, pageURL string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	browser, page, err := b.open(runCtx, pageURL)
	if err != nil {
		return "", err
	}
	defer browser.Close()

	data, err := page.Screenshot(true, nil)
	if err != nil {
		return "", errs.New(errs.AdapterTransient, "browser.screenshot", pageURL, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ScreenshotElements captures up to max elements matching selector on
// pageURL, each as a base64-encoded PNG.
func (b *Browser) ScreenshotElements(ctx context.Context, pageURL, selector string, max int) ([]string, error) {
	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	browser, page, err := b.open(runCtx, pageURL)
	if err != nil {
		return nil, err
	}
	defer browser.Close()

	elements, err := page.Elements(selector)
	if err != nil {
		return nil, errs.New(errs.AdapterTransient, "browser.elements", selector, err)
	}

	out := make([]string, 0, max)
	for i, el := range elements {
		if i >= max {
			break
		}
		data, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		if err != nil {
			continue
		}
		out = append(out, base64.StdEncoding.EncodeToString(data))
	}
	return out, nil
}
