// Package capture screenshots the rendered month page with headless
// Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	"moncal/internal/calendar"
	"moncal/internal/config"
	appLog "moncal/internal/log"
)

const (
	DefaultTimeout = 30 * time.Second

	// readySelector is the month grid; it is server-rendered, so once it
	// is visible the page is complete.
	readySelector = "table.month"
)

// Options controls one snapshot.
type Options struct {
	// URL of the month page, e.g. "http://127.0.0.1:8080/?month=2024-03".
	URL        string
	OutputPath string

	Width  int
	Height int

	Timeout time.Duration

	// ExecPath overrides the Chromium binary chromedp would find on PATH.
	ExecPath string
}

// OptionsFromConfig fills viewport and output defaults from the snapshot
// config and points URL at the local listener.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:        "http://" + dialAddr(cfg.Listen) + "/",
		OutputPath: cfg.Snapshot.Output,
		Width:      cfg.Snapshot.Width,
		Height:     cfg.Snapshot.Height,
		Timeout:    DefaultTimeout,
	}
}

// dialAddr turns a wildcard listen address into one a browser can reach.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// WithMonth sets the month query parameter on a page URL, keeping any
// other parameters it already has.
func WithMonth(rawURL, month string) (string, error) {
	if _, _, err := calendar.ParseMonth(month); err != nil {
		return "", err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("capture: parse URL: %w", err)
	}
	q := u.Query()
	q.Set("month", month)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (o Options) normalize() (Options, error) {
	if o.URL == "" {
		return o, errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return o, errors.New("capture: output path is required")
	}
	if o.Width <= 0 {
		o.Width = config.DefaultSnapshotWidth
	}
	if o.Height <= 0 {
		o.Height = config.DefaultSnapshotHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o, nil
}

// Snapshot loads opts.URL in headless Chromium, waits for the month grid
// and writes a full-page PNG to opts.OutputPath.
func Snapshot(parent context.Context, opts Options) error {
	opts, err := opts.normalize()
	if err != nil {
		return err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	defer allocCancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	start := time.Now()
	err = chromedp.Run(ctx,
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	)
	if err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: write PNG: %w", err)
	}
	appLog.Info("snapshot written",
		"url", opts.URL,
		"path", opts.OutputPath,
		"bytes", len(png),
		"elapsed", time.Since(start),
	)
	return nil
}
