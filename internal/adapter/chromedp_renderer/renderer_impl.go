package chromedp_renderer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/bizanalyzer/internal/entity"
	"github.com/user/bizanalyzer/internal/repository"
)

const screenshotQuality = 80

// textNodesScript walks every text node and reports the layout of its parent element.
const textNodesScript = `(() => {
	const out = [];
	const root = document.body || document.documentElement;
	if (!root) return out;
	const walker = document.createTreeWalker(root, NodeFilter.SHOW_TEXT);
	let node;
	while ((node = walker.nextNode())) {
		const parent = node.parentElement;
		if (!parent) {
			out.push({text: node.textContent || "", hasParent: false, height: 0, display: "", visibility: "", opacity: ""});
			continue;
		}
		const style = window.getComputedStyle(parent);
		out.push({
			text: node.textContent || "",
			hasParent: true,
			height: parent.offsetHeight,
			display: style.display,
			visibility: style.visibility,
			opacity: style.opacity,
		});
	}
	return out;
})()`

type allocator struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromedpRenderer renders pages in headless Chrome, one exec allocator per proxy server.
// Every attempt launches its own browser from the allocator and closes it afterwards.
type ChromedpRenderer struct {
	headless   bool
	navTimeout time.Duration
	logger     *zap.Logger

	mu         sync.Mutex
	allocators map[string]*allocator
}

// NewChromedpRenderer creates a new renderer implementation using chromedp.
func NewChromedpRenderer(headless bool, navTimeout time.Duration, logger *zap.Logger) *ChromedpRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpRenderer{
		headless:   headless,
		navTimeout: navTimeout,
		logger:     logger,
		allocators: make(map[string]*allocator),
	}
}

var _ repository.Renderer = (*ChromedpRenderer)(nil)

// Render navigates to pageURL and collects the text nodes, the outer HTML and optionally a screenshot.
func (r *ChromedpRenderer) Render(ctx context.Context, pageURL string, session entity.Session, opts repository.RenderOptions) (*entity.RenderedPage, error) {
	server, user, pass, err := splitProxy(session.ProxyURL)
	if err != nil {
		return nil, entity.NonRetryable("invalid proxy url: %v", err)
	}
	alloc := r.allocator(server)

	taskCtx, cancelTask := chromedp.NewContext(alloc.ctx, chromedp.WithLogf(r.logger.Sugar().Debugf))
	defer cancelTask()
	// Tie the browser tab to the caller's context.
	stop := context.AfterFunc(ctx, cancelTask)
	defer stop()

	var crashed atomic.Bool
	chromedp.ListenTarget(taskCtx, func(ev any) {
		switch ev := ev.(type) {
		case *inspector.EventTargetCrashed:
			crashed.Store(true)
			cancelTask()
		case *fetch.EventRequestPaused:
			go func() {
				c := chromedp.FromContext(taskCtx)
				_ = fetch.ContinueRequest(ev.RequestID).Do(cdp.WithExecutor(taskCtx, c.Target))
			}()
		case *fetch.EventAuthRequired:
			go func() {
				c := chromedp.FromContext(taskCtx)
				resp := &fetch.AuthChallengeResponse{
					Response: fetch.AuthChallengeResponseResponseProvideCredentials,
					Username: user,
					Password: pass,
				}
				_ = fetch.ContinueWithAuth(ev.RequestID, resp).Do(cdp.WithExecutor(taskCtx, c.Target))
			}()
		}
	})

	actions := []chromedp.Action{inspector.Enable()}
	if user != "" {
		actions = append(actions, fetch.Enable().WithHandleAuthRequests(true))
	}
	if session.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(session.UserAgent))
	}

	// The first Run starts the tab and must not carry the navigation deadline.
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, r.fail(ctx, taskCtx, server, err, crashed.Load())
	}

	navCtx, cancelNav := context.WithTimeout(taskCtx, r.navTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return nil, r.fail(ctx, taskCtx, server, err, crashed.Load())
	}

	page := &entity.RenderedPage{URL: pageURL}
	collect := []chromedp.Action{
		chromedp.Evaluate(textNodesScript, &page.TextNodes),
		chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery),
	}
	if opts.Screenshot {
		collect = append(collect, chromedp.FullScreenshot(&page.Screenshot, screenshotQuality))
	}
	if err := chromedp.Run(taskCtx, collect...); err != nil {
		return nil, r.fail(ctx, taskCtx, server, err, crashed.Load())
	}
	page.RenderedAt = time.Now().UTC()
	return page, nil
}

// Close shuts down every browser process.
func (r *ChromedpRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for server, a := range r.allocators {
		a.cancel()
		delete(r.allocators, server)
	}
}

func (r *ChromedpRenderer) allocator(server string) *allocator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.allocators[server]; ok {
		return a
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if server != "" {
		opts = append(opts, chromedp.ProxyServer(server))
	}
	ctx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	a := &allocator{ctx: ctx, cancel: cancel}
	r.allocators[server] = a
	return a
}

// fail classifies a failed attempt. A crashed target takes down only the
// browser of this attempt; the allocator stays shared by the other workers.
func (r *ChromedpRenderer) fail(ctx, taskCtx context.Context, server string, err error, crashed bool) error {
	if crashed {
		_ = chromedp.Cancel(taskCtx)
		r.logger.Warn("browser target crashed", zap.String("proxy", server), zap.Error(err))
	}
	return ClassifyError(ctx, err, crashed)
}

// ClassifyError maps a chromedp failure onto the render error taxonomy. ctx is
// the caller's context: once its deadline passed, the tab was cancelled by it and
// the attempt counts as a navigation timeout. The context error that stopped the
// tab is never part of the chain, so render failures stay retryable.
func ClassifyError(ctx context.Context, err error, crashed bool) error {
	switch {
	case err == nil:
		return nil
	case crashed:
		return fmt.Errorf("%w: %v", entity.ErrTargetCrashed, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", entity.ErrNavigationTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("render aborted: %w", ctx.Err())
	default:
		return fmt.Errorf("%w: %v", entity.ErrRenderFailed, err)
	}
}

// splitProxy separates the proxy server from its credentials.
func splitProxy(proxyURL string) (server, user, pass string, err error) {
	if proxyURL == "" {
		return "", "", "", nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return "", "", "", err
	}
	if u.Host == "" {
		return "", "", "", fmt.Errorf("proxy %q has no host", proxyURL)
	}
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	return u.Scheme + "://" + u.Host, user, pass, nil
}
