package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/appraiser/pkg/logger"
)

// errSessionClosed is returned by any call on a closed snapshot session.
var errSessionClosed = errors.New("session closed")

// Snapshot replays a saved profile page. Each launch parses a fresh copy of
// the document, so sessions never observe each other's mutations.
//
// The replayed page keeps the invalidation behaviour of a live one: every
// click or select re-renders the document and turns all previously returned
// elements stale. Nodes marked data-lazy stay hidden until the page is
// scrolled. Selecting an "owned" filter option removes data-owned="false"
// items from the nearest enclosing container that has any.
type Snapshot struct {
	html       []byte
	logger     logger.Logger
	onNavigate func(string) error
	launches   atomic.Int64
}

// NewSnapshot creates a launcher over an HTML document.
func NewSnapshot(html []byte, opts ...SnapshotOption) *Snapshot {
	s := &Snapshot{
		html:   html,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Launches reports how many sessions have been started.
func (s *Snapshot) Launches() int64 {
	return s.launches.Load()
}

// Launch parses the document into a new session.
func (s *Snapshot) Launch(ctx context.Context) (Session, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(s.html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	s.launches.Add(1)
	s.logger.Debug(ctx, "snapshot session opened", logger.Int("bytes", len(s.html)))
	return &snapshotPage{doc: doc, owner: s}, nil
}

type snapshotPage struct {
	mu       sync.Mutex
	doc      *goquery.Document
	owner    *Snapshot
	gen      uint64
	url      string
	scrolled bool
	closed   bool
}

func (p *snapshotPage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errSessionClosed
	}
	if p.owner.onNavigate != nil {
		if err := p.owner.onNavigate(url); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNavigate, url, err)
		}
	}
	p.url = url
	p.gen++
	return nil
}

func (p *snapshotPage) WaitBody(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errSessionClosed
	}
	if p.doc.Find("body").Length() == 0 {
		return errors.New("document has no body")
	}
	return nil
}

func (p *snapshotPage) BodyText(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", errSessionClosed
	}
	return renderedText(p.doc.Find("body")), nil
}

func (p *snapshotPage) ScrollBy(_ context.Context, px int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errSessionClosed
	}
	if px > 0 {
		p.scrolled = true
	}
	return nil
}

func (p *snapshotPage) Find(_ context.Context, selector string) ([]Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errSessionClosed
	}
	return p.wrap(p.doc.Find(selector)), nil
}

// wrap turns visible matches into elements of the current generation.
// Callers hold p.mu.
func (p *snapshotPage) wrap(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		if !p.scrolled && node.Closest("[data-lazy]").Length() > 0 {
			return
		}
		out = append(out, &snapshotElement{page: p, sel: node, gen: p.gen})
	})
	return out
}

func (p *snapshotPage) Close(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.owner.logger.Debug(ctx, "snapshot session closed", logger.String("url", p.url))
}

type snapshotElement struct {
	page *snapshotPage
	sel  *goquery.Selection
	gen  uint64
}

// check validates the handle. Callers hold page.mu.
func (e *snapshotElement) check() error {
	if e.page.closed {
		return errSessionClosed
	}
	if e.gen != e.page.gen {
		return ErrStaleElement
	}
	return nil
}

func (e *snapshotElement) Text(_ context.Context) (string, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(); err != nil {
		return "", err
	}
	return strings.TrimSpace(renderedText(e.sel)), nil
}

// unrendered matches nodes whose text a browser leaves out of innerText.
const unrendered = "script, style, template, noscript, [hidden]"

// renderedText approximates innerText on a static document.
func renderedText(sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find(unrendered).Remove()
	return clone.Text()
}

func (e *snapshotElement) Find(_ context.Context, selector string) ([]Element, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(); err != nil {
		return nil, err
	}
	return e.page.wrap(e.sel.Find(selector)), nil
}

func (e *snapshotElement) Click(_ context.Context) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	if e.sel.AttrOr("aria-expanded", "") == "true" {
		e.sel.SetAttr("aria-expanded", "false")
	} else {
		e.sel.SetAttr("aria-expanded", "true")
	}
	e.page.gen++
	return nil
}

func (e *snapshotElement) isSelect() bool {
	return e.sel.Length() > 0 && strings.EqualFold(goquery.NodeName(e.sel), "select")
}

func optionOf(opt *goquery.Selection) Option {
	label := strings.TrimSpace(opt.Text())
	return Option{Value: opt.AttrOr("value", label), Label: label}
}

func (e *snapshotElement) Options(_ context.Context) ([]Option, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(); err != nil {
		return nil, err
	}
	if !e.isSelect() {
		return nil, ErrNotSelectable
	}
	var out []Option
	e.sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		out = append(out, optionOf(opt))
	})
	return out, nil
}

func (e *snapshotElement) Select(_ context.Context, value string) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.check(); err != nil {
		return err
	}
	if !e.isSelect() {
		return ErrNotSelectable
	}

	var chosen *goquery.Selection
	e.sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		opt.RemoveAttr("selected")
		if chosen == nil && optionOf(opt).Value == value {
			chosen = opt
		}
	})
	if chosen == nil {
		return fmt.Errorf("%w: %q", ErrNoSuchOption, value)
	}
	chosen.SetAttr("selected", "selected")

	if ownedOnly(optionOf(chosen)) {
		for scope := e.sel.Parent(); scope.Length() > 0; scope = scope.Parent() {
			if scope.Find("[data-owned]").Length() > 0 {
				scope.Find(`[data-owned="false"]`).Remove()
				break
			}
		}
	}
	e.page.gen++
	return nil
}

func ownedOnly(opt Option) bool {
	s := strings.ToLower(opt.Label + " " + opt.Value)
	return strings.Contains(s, "owned") &&
		!strings.Contains(s, "unowned") &&
		!strings.Contains(s, "not owned") &&
		!strings.Contains(s, "not_owned")
}
