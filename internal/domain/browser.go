package domain

import (
	"context"
	"time"
)

// Browser starts isolated browser sessions.
type Browser interface {
	Launch(ctx context.Context) (BrowserSession, error)
}

// BrowserSession is one headless browser with a single open tab.
// Close must be called exactly once, whatever happened before.
type BrowserSession interface {
	// Navigate loads url and waits until the document body is ready.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Extract reads the rendered page.
	Extract(ctx context.Context) (PageContent, error)
	Close() error
}
