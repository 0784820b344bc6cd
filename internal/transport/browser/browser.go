// Package browser drives headless Chrome through the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/kailas-cloud/pagevec/internal/domain"
)

// Config holds Chrome launch settings.
type Config struct {
	Headless  bool
	UserAgent string
	ExecPath  string // empty: look up Chrome on PATH
}

// Browser launches one Chrome process per session.
type Browser struct {
	opts []chromedp.ExecAllocatorOption
}

// New creates a Browser. Nothing starts until Launch.
func New(cfg Config) *Browser {
	return &Browser{opts: allocatorOptions(cfg)}
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// Launch starts Chrome and opens a blank tab. The session is detached from
// ctx cancellation; only Close tears it down.
func (b *Browser) Launch(ctx context.Context) (domain.BrowserSession, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), b.opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// First Run with no actions starts the process.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &Session{ctx: tabCtx, cancelTab: tabCancel, cancelAlloc: allocCancel}, nil
}

// Session is one running Chrome with one tab.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Navigate loads url and waits for <body>. It gives up after timeout or
// when ctx is done, whichever comes first.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// extractScript collects everything a page contributes to its record.
const extractScript = `(() => {
  const meta = (name) => {
    const el = document.querySelector('meta[name="' + name + '"]');
    return el ? (el.getAttribute('content') || '') : '';
  };
  return {
    title: document.title || '',
    text: document.body ? document.body.innerText : '',
    links: Array.from(document.querySelectorAll('a[href]')).map((a) => a.href),
    images: Array.from(document.querySelectorAll('img[src]')).map((i) => i.src),
    meta: { description: meta('description'), keywords: meta('keywords') },
  };
})()`

type extracted struct {
	Title  string          `json:"title"`
	Text   string          `json:"text"`
	Links  []string        `json:"links"`
	Images []string        `json:"images"`
	Meta   domain.PageMeta `json:"meta"`
}

// Extract evaluates the extraction script in the loaded page.
func (s *Session) Extract(ctx context.Context) (domain.PageContent, error) {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var out extracted
	if err := chromedp.Run(runCtx, chromedp.Evaluate(extractScript, &out)); err != nil {
		return domain.PageContent{}, fmt.Errorf("evaluate extraction script: %w", err)
	}
	return out.toContent(), nil
}

// Close shuts the tab and kills the Chrome process.
func (s *Session) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelTab()
	s.cancelAlloc()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

func (e *extracted) toContent() domain.PageContent {
	return domain.PageContent{
		Title:  strings.TrimSpace(e.Title),
		Text:   strings.TrimSpace(e.Text),
		Links:  webURLs(e.Links),
		Images: webURLs(e.Images),
		Meta: domain.PageMeta{
			Description: strings.TrimSpace(e.Meta.Description),
			Keywords:    strings.TrimSpace(e.Meta.Keywords),
		},
	}
}

// webURLs keeps http(s) URLs in first-seen order, without duplicates.
// Anchors, javascript: and data: URLs are dropped.
func webURLs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, u := range in {
		u = strings.TrimSpace(u)
		lower := strings.ToLower(u)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
