package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeLauncher launches headless Chrome/Chromium processes via chromedp.
type ChromeLauncher struct {
	execPath string
	logger   *zap.Logger
}

// NewChromeLauncher creates a launcher. An empty execPath lets chromedp
// locate the browser binary.
func NewChromeLauncher(execPath string, logger *zap.Logger) *ChromeLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeLauncher{execPath: execPath, logger: logger}
}

// Launch starts a new browser process with one blank tab.
func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if l.execPath != "" {
		opts = append(opts, chromedp.ExecPath(l.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	sugar := l.logger.Sugar()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	b := &chromeBrowser{
		ctx: taskCtx,
		cancel: func() {
			taskCancel()
			allocCancel()
		},
	}

	// The first Run allocates the browser process.
	if err := chromedp.Run(taskCtx); err != nil {
		b.cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	// The first tab's target ID doubles as its main frame ID.
	mainFrame := cdp.FrameID(chromedp.FromContext(taskCtx).Target.TargetID)
	b.idle = newIdleTracker(mainFrame)
	chromedp.ListenTarget(taskCtx, b.idle.handle)
	return b, nil
}

type chromeBrowser struct {
	ctx    context.Context
	cancel context.CancelFunc
	idle   *idleTracker

	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the browser tab, bounded by ctx's deadline and
// cancellation.
func (b *chromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(b.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(b.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (b *chromeBrowser) SetViewport(ctx context.Context, width, height int) error {
	return b.run(ctx, chromedp.EmulateViewport(int64(width), int64(height)))
}

func (b *chromeBrowser) Navigate(ctx context.Context, url string) error {
	b.idle.arm()

	var loader cdp.LoaderID
	if err := b.run(ctx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, loaderID, errText, _, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return fmt.Errorf("page load error %s", errText)
			}
			loader = loaderID
			return nil
		}),
	); err != nil {
		return err
	}

	// Same-document navigations have no loader and no new network activity.
	if loader == "" {
		return nil
	}
	b.idle.expect(loader)

	select {
	case <-b.idle.done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for network idle: %w", ctx.Err())
	}
}

func (b *chromeBrowser) WaitVisible(ctx context.Context, selector string) error {
	return b.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (b *chromeBrowser) Click(ctx context.Context, selector string) error {
	return b.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (b *chromeBrowser) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// Quality 100 selects PNG encoding.
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := b.run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *chromeBrowser) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = chromedp.Cancel(b.ctx)
		b.cancel()
	})
	return b.closeErr
}
