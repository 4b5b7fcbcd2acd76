package browser

import (
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

// idleTracker turns page lifecycle events into a single "network idle"
// signal for one main-frame document.
//
// Only networkIdle events whose frame is the main frame and whose loader is
// the one returned by the armed navigation count. Idle events for the blank
// start page and for child frames are ignored.
type idleTracker struct {
	mainFrame cdp.FrameID

	mu   sync.Mutex
	want cdp.LoaderID
	seen cdp.LoaderID
	idle chan struct{}
}

func newIdleTracker(mainFrame cdp.FrameID) *idleTracker {
	return &idleTracker{
		mainFrame: mainFrame,
		idle:      make(chan struct{}, 1),
	}
}

// arm forgets the previous document and any pending signal. Call it before
// starting a navigation.
func (t *idleTracker) arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.want = ""
	t.seen = ""
	select {
	case <-t.idle:
	default:
	}
}

// expect sets the loader of the document being navigated to. The idle event
// may already have arrived.
func (t *idleTracker) expect(loader cdp.LoaderID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.want = loader
	if t.seen != "" && t.seen == loader {
		t.signal()
	}
}

// done is signalled once the expected document is network idle.
func (t *idleTracker) done() <-chan struct{} {
	return t.idle
}

func (t *idleTracker) handle(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.FrameID != t.mainFrame {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Name {
	case "init":
		// A new document replaces whatever went idle before it.
		t.seen = ""
	case "networkIdle":
		t.seen = e.LoaderID
		if t.want != "" && t.seen == t.want {
			t.signal()
		}
	}
}

func (t *idleTracker) signal() {
	select {
	case t.idle <- struct{}{}:
	default:
	}
}
