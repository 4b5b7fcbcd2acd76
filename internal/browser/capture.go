package browser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ironsheep/image-extractor-mcp/internal/toolerr"
)

// Defaults for capture options and step timeouts.
const (
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultWaitForLoad    = 2000 * time.Millisecond
	DefaultClickWaitAfter = 500 * time.Millisecond

	NavigationTimeout = 30 * time.Second
	SelectorTimeout   = 10 * time.Second
	ClickTimeout      = 10 * time.Second
)

// Options controls a single capture.
type Options struct {
	ViewportWidth  int
	ViewportHeight int
	FullPage       bool

	// WaitForLoad is an extra settle delay after the network goes idle.
	WaitForLoad time.Duration

	// WaitForSelector, when set, is awaited before capturing. A timeout
	// becomes a warning.
	WaitForSelector string

	// ClickSelector, when set, is clicked before capturing, followed by
	// ClickWaitAfter. A failed click becomes a warning.
	ClickSelector  string
	ClickWaitAfter time.Duration
}

// DefaultOptions returns the options used when a caller specifies none.
func DefaultOptions() Options {
	return Options{
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		FullPage:       true,
		WaitForLoad:    DefaultWaitForLoad,
		ClickWaitAfter: DefaultClickWaitAfter,
	}
}

// Capture is a rendered page.
type Capture struct {
	PNG      []byte
	Warnings []toolerr.Warning
}

// Capturer takes screenshots, one browser per call.
type Capturer struct {
	launcher Launcher
	sem      *semaphore.Weighted
	logger   *zap.Logger

	navigationTimeout time.Duration
	selectorTimeout   time.Duration
	clickTimeout      time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewCapturer creates a Capturer. maxConcurrent limits the number of live
// browsers; zero or less means unlimited.
func NewCapturer(launcher Launcher, maxConcurrent int64, logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Capturer{
		launcher:          launcher,
		logger:            logger,
		navigationTimeout: NavigationTimeout,
		selectorTimeout:   SelectorTimeout,
		clickTimeout:      ClickTimeout,
		sleep:             sleep,
	}
	if maxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(maxConcurrent)
	}
	return c
}

// Capture renders url and returns a PNG screenshot.
//
// Launch, navigation and screenshot failures fail the capture. The browser is
// closed exactly once on every path, including panics.
func (c *Capturer) Capture(ctx context.Context, url string, opts Options) (*Capture, error) {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, toolerr.Wrap(toolerr.AcquisitionFailure, err, "failed to acquire browser slot")
		}
		defer c.sem.Release(1)
	}

	res := &Capture{}
	err := c.withBrowser(ctx, func(b Browser) error {
		if err := b.SetViewport(ctx, opts.ViewportWidth, opts.ViewportHeight); err != nil {
			return toolerr.Wrap(toolerr.AcquisitionFailure, err, "failed to set viewport")
		}

		navCtx, cancel := context.WithTimeout(ctx, c.navigationTimeout)
		err := b.Navigate(navCtx, url)
		cancel()
		if err != nil {
			return toolerr.Wrap(toolerr.AcquisitionFailure, err, fmt.Sprintf("failed to load %s", url))
		}

		if opts.WaitForLoad > 0 {
			if err := c.sleep(ctx, opts.WaitForLoad); err != nil {
				return toolerr.Wrap(toolerr.AcquisitionFailure, err, "capture cancelled")
			}
		}

		if opts.WaitForSelector != "" {
			selCtx, cancel := context.WithTimeout(ctx, c.selectorTimeout)
			err := b.WaitVisible(selCtx, opts.WaitForSelector)
			cancel()
			if err != nil {
				c.warn(res, "wait_for_selector",
					fmt.Sprintf("selector %q did not appear within %s", opts.WaitForSelector, c.selectorTimeout), err)
			}
		}

		if opts.ClickSelector != "" {
			clickCtx, cancel := context.WithTimeout(ctx, c.clickTimeout)
			err := b.Click(clickCtx, opts.ClickSelector)
			cancel()
			if err != nil {
				c.warn(res, "click", fmt.Sprintf("failed to click %q", opts.ClickSelector), err)
			} else if opts.ClickWaitAfter > 0 {
				if err := c.sleep(ctx, opts.ClickWaitAfter); err != nil {
					return toolerr.Wrap(toolerr.AcquisitionFailure, err, "capture cancelled")
				}
			}
		}

		png, err := b.Screenshot(ctx, opts.FullPage)
		if err != nil {
			return toolerr.Wrap(toolerr.AcquisitionFailure, err, "failed to capture screenshot")
		}
		res.PNG = png
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// withBrowser launches a browser, runs fn and closes the browser whatever fn
// does.
func (c *Capturer) withBrowser(ctx context.Context, fn func(Browser) error) error {
	b, err := c.launcher.Launch(ctx)
	if err != nil {
		return toolerr.Wrap(toolerr.AcquisitionFailure, err, "failed to launch browser")
	}
	defer func() {
		if err := b.Close(); err != nil {
			c.logger.Debug("browser close returned error", zap.Error(err))
		}
	}()
	return fn(b)
}

func (c *Capturer) warn(res *Capture, stage, msg string, err error) {
	c.logger.Warn(msg, zap.String("stage", stage), zap.Error(err))
	res.Warnings = append(res.Warnings, toolerr.Warning{Stage: stage, Message: msg})
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
