// Package browser captures screenshots of live web pages with a headless browser.
//
// Every capture launches its own browser process through a Launcher and
// releases it on every exit path. Optional page interactions (waiting for a
// selector, clicking an element) are best effort: their failures are reported
// as warnings and the screenshot is still taken.
package browser

import (
	"context"
)

// Browser is one headless browser session with a single page.
//
// Implementations must tolerate Close being called after any other method
// has failed.
type Browser interface {
	// SetViewport sets the page's CSS viewport size.
	SetViewport(ctx context.Context, width, height int) error

	// Navigate loads url and waits until the network is idle.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until an element matching the CSS selector is visible.
	WaitVisible(ctx context.Context, selector string) error

	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, selector string) error

	// Screenshot returns a PNG of the viewport, or of the whole scrollable
	// page when fullPage is set.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// Close terminates the session and its browser process.
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}
