package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/okian/appraiser/pkg/logger"
	"github.com/okian/appraiser/pkg/metrics"
)

// helper binaries shipped next to a portable chrome build
var bundledCompanions = []string{"chrome_crashpad_handler", "chrome_sandbox", "chrome-wrapper"}

// Chrome launches headless Chrome through the DevTools protocol.
type Chrome struct {
	execPath        string
	bundled         bool
	headless        bool
	width, height   int
	pageLoadTimeout time.Duration
	elementWait     time.Duration
	logger          logger.Logger
}

// NewChrome creates a Chrome launcher.
func NewChrome(opts ...ChromeOption) *Chrome {
	c := &Chrome{
		headless:        true,
		width:           defaultViewportWidth,
		height:          defaultViewportHeight,
		pageLoadTimeout: defaultPageLoadTimeout,
		elementWait:     defaultElementWait,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(c.width, c.height),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	return opts
}

// prepareBundle marks the bundled binary and its companions executable.
func (c *Chrome) prepareBundle() error {
	if !c.bundled || c.execPath == "" {
		return nil
	}
	if err := os.Chmod(c.execPath, 0o755); err != nil {
		return fmt.Errorf("chmod %s: %w", c.execPath, err)
	}
	dir := filepath.Dir(c.execPath)
	for _, name := range bundledCompanions {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := os.Chmod(p, 0o755); err != nil {
			return fmt.Errorf("chmod %s: %w", p, err)
		}
	}
	return nil
}

// Launch starts a browser and opens a blank tab. A partially started browser
// is torn down before the error is returned.
func (c *Chrome) Launch(ctx context.Context) (Session, error) {
	if err := c.prepareBundle(); err != nil {
		metrics.RecordBrowserLaunch(false)
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		metrics.RecordBrowserLaunch(false)
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	metrics.RecordBrowserLaunch(true)
	c.logger.Debug(ctx, "browser launched",
		logger.String("exec_path", c.execPath),
		logger.Bool("headless", c.headless))

	return &chromeSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		pageLoad:    c.pageLoadTimeout,
		elementWait: c.elementWait,
		logger:      c.logger,
	}, nil
}

type chromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	pageLoad    time.Duration
	elementWait time.Duration
	logger      logger.Logger
}

// run executes actions on the tab, bounded by the caller's ctx and d.
func (s *chromeSession) run(ctx context.Context, d time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, d)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.pageLoad, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNavigate, url, err)
	}
	return nil
}

func (s *chromeSession) WaitBody(ctx context.Context) error {
	return s.run(ctx, s.pageLoad, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (s *chromeSession) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, s.elementWait, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (s *chromeSession) ScrollBy(ctx context.Context, px int) error {
	return s.run(ctx, s.elementWait, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", px), nil))
}

func (s *chromeSession) Find(ctx context.Context, selector string) ([]Element, error) {
	return s.query(ctx, selector, nil)
}

// query waits up to the element wait for a first match and returns an empty
// slice when none shows up.
func (s *chromeSession) query(ctx context.Context, selector string, from *cdp.Node) ([]Element, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.ByQueryAll}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}
	err := s.run(ctx, s.elementWait, chromedp.Nodes(selector, &nodes, opts...))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, classify(err)
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &chromeElement{session: s, node: n})
	}
	return out, nil
}

func (s *chromeSession) Close(ctx context.Context) {
	if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn(ctx, "browser shutdown failed", logger.Error(err))
	}
	s.cancelTab()
	s.cancelAlloc()
}

type chromeElement struct {
	session *chromeSession
	node    *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

// alive fails with ErrStaleElement once the node has left the document.
func (e *chromeElement) alive(ctx context.Context) error {
	err := e.session.run(ctx, e.session.elementWait, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := dom.DescribeNode().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	return classify(err)
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.run(ctx, e.session.elementWait,
		chromedp.Text(e.ids(), &text, chromedp.ByNodeID))
	if err != nil {
		return "", classify(err)
	}
	return strings.TrimSpace(text), nil
}

func (e *chromeElement) Find(ctx context.Context, selector string) ([]Element, error) {
	if err := e.alive(ctx); err != nil {
		return nil, err
	}
	return e.session.query(ctx, selector, e.node)
}

// callOn runs a function declaration with this bound to the node.
func (e *chromeElement) callOn(fn string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		_, exc, err := runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return nil
	}
}

func (e *chromeElement) Click(ctx context.Context) error {
	err := e.session.run(ctx, e.session.elementWait,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx)
		}),
		e.callOn("function() { this.click(); }"),
	)
	return classify(err)
}

func (e *chromeElement) Options(ctx context.Context) ([]Option, error) {
	if !strings.EqualFold(e.node.NodeName, "select") {
		return nil, ErrNotSelectable
	}
	children, err := e.Find(ctx, "option")
	if err != nil {
		return nil, err
	}
	out := make([]Option, 0, len(children))
	for _, child := range children {
		ce := child.(*chromeElement)
		label, err := ce.Text(ctx)
		if err != nil {
			return nil, err
		}
		value := ce.node.AttributeValue("value")
		if value == "" {
			value = label
		}
		out = append(out, Option{Value: value, Label: label})
	}
	return out, nil
}

func (e *chromeElement) Select(ctx context.Context, value string) error {
	if !strings.EqualFold(e.node.NodeName, "select") {
		return ErrNotSelectable
	}
	literal, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fn := fmt.Sprintf(`function() {
		this.value = %s;
		this.dispatchEvent(new Event("input", { bubbles: true }));
		this.dispatchEvent(new Event("change", { bubbles: true }));
	}`, literal)
	return classify(e.session.run(ctx, e.session.elementWait, e.callOn(fn)))
}
