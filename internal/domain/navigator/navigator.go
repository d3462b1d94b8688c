// Package navigator walks the cosmetic category sections of a profile page.
//
// Page handles go stale whenever the page re-renders, so every step locates
// its section again by header text instead of reusing a handle from an
// earlier step.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/okian/appraiser/internal/adapters/browser"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/logger"
	"github.com/okian/appraiser/pkg/metrics"
)

// Outcome is the result kind of one step.
type Outcome int

const (
	// Ok advances to the next state.
	Ok Outcome = iota
	// Skip abandons the current category and moves on.
	Skip
	// Fatal abandons the whole scrape.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case Skip:
		return "skip"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// State is a position in the per-category state machine.
type State int

const (
	Locate State = iota
	ReadCount
	Expand
	SelectOwnedFilter
	Enumerate
	Collapse
	Done
)

func (s State) String() string {
	switch s {
	case Locate:
		return "locate"
	case ReadCount:
		return "read_count"
	case Expand:
		return "expand"
	case SelectOwnedFilter:
		return "select_owned_filter"
	case Enumerate:
		return "enumerate"
	case Collapse:
		return "collapse"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Skip reasons.
const (
	ReasonNotFound     = "not_found"
	ReasonNoCounter    = "no_counter"
	ReasonBadCount     = "unparsable_count"
	ReasonNoneOwned    = "none_owned"
	ReasonExpandFailed = "expand_failed"
	ReasonNoFilter     = "no_owned_filter"
	ReasonNoItems      = "no_items"
)

// Step is the value a state returns.
type Step struct {
	Outcome Outcome
	Next    State
	Reason  string
	Err     error
}

func ok(next State) Step { return Step{Outcome: Ok, Next: next} }

func skip(reason string, err error) Step {
	return Step{Outcome: Skip, Next: Done, Reason: reason, Err: err}
}

// Result is what one category produced.
type Result struct {
	Category  model.Category
	Items     []model.ScrapedItem
	Owned     int
	Total     int
	Processed bool
	Skipped   bool
	Reason    string
	Err       error
}

// Navigator runs the category state machine against a page.
type Navigator struct {
	sel            Selectors
	ownedLabels    []string
	clickAttempts  int
	clickBackoff   time.Duration
	lookupAttempts int
	lookupPause    time.Duration
	logger         logger.Logger
}

// New creates a Navigator.
func New(opts ...Option) *Navigator {
	n := &Navigator{
		sel:            DefaultSelectors(),
		ownedLabels:    DefaultOwnedLabels(),
		clickAttempts:  defaultClickAttempts,
		clickBackoff:   defaultClickBackoff,
		lookupAttempts: defaultLookupAttempts,
		lookupPause:    defaultLookupPause,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Discover lists the known categories in the order the page shows them,
// along with how many sections were present in total.
func (n *Navigator) Discover(ctx context.Context, page browser.Page) ([]model.Category, int, error) {
	sections, err := page.Find(ctx, n.sel.Section)
	if err != nil {
		return nil, 0, err
	}
	seen := make(map[model.Category]bool, len(sections))
	var out []model.Category
	for _, s := range sections {
		c, ok := n.header(ctx, s)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, len(sections), nil
}

func (n *Navigator) header(ctx context.Context, section browser.Element) (model.Category, bool) {
	headers, err := section.Find(ctx, n.sel.Header)
	if err != nil || len(headers) == 0 {
		return "", false
	}
	text, err := headers[0].Text(ctx)
	if err != nil {
		return "", false
	}
	return model.ParseCategory(text)
}

// locate re-queries the full section list and matches on header text.
func (n *Navigator) locate(ctx context.Context, page browser.Page, cat model.Category) (browser.Element, error) {
	sections, err := page.Find(ctx, n.sel.Section)
	if err != nil {
		return nil, err
	}
	for _, s := range sections {
		if c, ok := n.header(ctx, s); ok && c == cat {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSectionMissing, cat)
}

// control locates the section and returns its first node matching selector.
func (n *Navigator) control(ctx context.Context, page browser.Page, cat model.Category, selector string) (browser.Element, error) {
	section, err := n.locate(ctx, page, cat)
	if err != nil {
		return nil, err
	}
	found, err := section.Find(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrControlMissing, selector)
	}
	return found[0], nil
}

type run struct {
	page     browser.Page
	result   *Result
	expanded bool
}

// Process walks one category from Locate to Done. Failures inside a category
// come back as a skipped Result; only a cancelled context is Fatal.
func (n *Navigator) Process(ctx context.Context, page browser.Page, cat model.Category) Result {
	res := Result{Category: cat}
	r := &run{page: page, result: &res}
	log := n.logger.Named("navigator")

	state := Locate
	for state != Done {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		var step Step
		switch state {
		case Locate:
			step = n.stepLocate(ctx, r)
		case ReadCount:
			step = n.stepReadCount(ctx, r)
		case Expand:
			step = n.stepExpand(ctx, r)
		case SelectOwnedFilter:
			step = n.stepSelectFilter(ctx, r)
		case Enumerate:
			step = n.stepEnumerate(ctx, r)
		case Collapse:
			step = n.stepCollapse(ctx, r)
		}

		if step.Outcome == Skip && ctx.Err() != nil {
			step = Step{Outcome: Fatal, Next: Done, Err: ctx.Err()}
		}

		switch step.Outcome {
		case Ok:
			state = step.Next
		case Skip:
			res.Skipped, res.Reason, res.Err = true, step.Reason, step.Err
			metrics.RecordCategorySkipped(step.Reason)
			fields := []logger.Field{
				logger.String("category", string(cat)),
				logger.String("state", state.String()),
				logger.String("reason", step.Reason),
			}
			if step.Err != nil {
				fields = append(fields, logger.Error(step.Err))
			}
			if step.Reason == ReasonNoneOwned {
				log.Debug(ctx, "category skipped", fields...)
			} else {
				log.Warn(ctx, "category skipped", fields...)
			}
			if r.expanded {
				n.stepCollapse(ctx, r)
			}
			return res
		case Fatal:
			res.Err = step.Err
			return res
		}
	}
	return res
}

func (n *Navigator) stepLocate(ctx context.Context, r *run) Step {
	if _, err := n.locate(ctx, r.page, r.result.Category); err != nil {
		return skip(ReasonNotFound, err)
	}
	return ok(ReadCount)
}

func (n *Navigator) stepReadCount(ctx context.Context, r *run) Step {
	counter, err := n.control(ctx, r.page, r.result.Category, n.sel.Counter)
	if err != nil {
		return skip(ReasonNoCounter, err)
	}
	text, err := counter.Text(ctx)
	if err != nil {
		return skip(ReasonNoCounter, err)
	}
	owned, total, parsed := ParseOwnedCount(text)
	if !parsed {
		return skip(ReasonBadCount, fmt.Errorf("counter %q", text))
	}
	r.result.Owned, r.result.Total = owned, total
	if owned == 0 {
		return skip(ReasonNoneOwned, nil)
	}
	return ok(Expand)
}

// retryDOM runs fn up to attempts times with a fixed pause, treating every
// failure as transient.
func retryDOM(ctx context.Context, attempts int, pause time.Duration, fn func(ctx context.Context, attempt int) error) error {
	attempt := 0
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(pause))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx, attempt); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// click re-locates the control on every attempt before clicking it.
func (n *Navigator) click(ctx context.Context, r *run, selector string) error {
	return retryDOM(ctx, n.clickAttempts, n.clickBackoff, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			metrics.RecordClickRetry()
		}
		el, err := n.control(ctx, r.page, r.result.Category, selector)
		if err != nil {
			return err
		}
		return el.Click(ctx)
	})
}

func (n *Navigator) stepExpand(ctx context.Context, r *run) Step {
	if err := n.click(ctx, r, n.sel.Toggle); err != nil {
		return skip(ReasonExpandFailed, err)
	}
	r.expanded = true
	return ok(SelectOwnedFilter)
}

// pickOwned chooses the owned-only option: preferred labels first, then any
// label mentioning "owned" that is not a negation of it.
func (n *Navigator) pickOwned(opts []browser.Option) (browser.Option, bool) {
	for _, want := range n.ownedLabels {
		for _, o := range opts {
			if strings.EqualFold(strings.TrimSpace(o.Label), want) {
				return o, true
			}
		}
	}
	for _, o := range opts {
		l := strings.ToLower(o.Label)
		if !strings.Contains(l, "owned") || strings.Contains(l, "not") || strings.Contains(l, "unowned") {
			continue
		}
		return o, true
	}
	return browser.Option{}, false
}

func (n *Navigator) stepSelectFilter(ctx context.Context, r *run) Step {
	err := retryDOM(ctx, n.clickAttempts, n.clickBackoff, func(ctx context.Context, _ int) error {
		filter, err := n.control(ctx, r.page, r.result.Category, n.sel.Filter)
		if err != nil {
			return err
		}
		opts, err := filter.Options(ctx)
		if err != nil {
			return err
		}
		choice, found := n.pickOwned(opts)
		if !found {
			return ErrNoOwnedOption
		}
		return filter.Select(ctx, choice.Value)
	})
	if err != nil {
		return skip(ReasonNoFilter, err)
	}
	return ok(Enumerate)
}

func (n *Navigator) stepEnumerate(ctx context.Context, r *run) Step {
	var items []browser.Element
	err := retryDOM(ctx, n.lookupAttempts, n.lookupPause, func(ctx context.Context, _ int) error {
		section, err := n.locate(ctx, r.page, r.result.Category)
		if err != nil {
			return err
		}
		found, err := section.Find(ctx, n.sel.Item)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return ErrNoItems
		}
		items = found
		return nil
	})
	if err != nil {
		return skip(ReasonNoItems, err)
	}

	for i, item := range items {
		name, readable := n.itemName(ctx, item)
		if !readable {
			n.logger.Debug(ctx, "item name unreadable",
				logger.String("category", string(r.result.Category)),
				logger.Int("index", i))
			continue
		}
		r.result.Items = append(r.result.Items, model.ScrapedItem{RawName: name, Category: r.result.Category})
	}
	r.result.Processed = true
	return ok(Collapse)
}

// itemName reads the primary name node, then the fallback.
func (n *Navigator) itemName(ctx context.Context, item browser.Element) (string, bool) {
	for _, sel := range []string{n.sel.Name, n.sel.NameFallback} {
		if sel == "" {
			continue
		}
		found, err := item.Find(ctx, sel)
		if err != nil || len(found) == 0 {
			continue
		}
		text, err := found[0].Text(ctx)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, true
		}
	}
	return "", false
}

// stepCollapse closes the section. Any failure is ignored.
func (n *Navigator) stepCollapse(ctx context.Context, r *run) Step {
	el, err := n.control(ctx, r.page, r.result.Category, n.sel.Toggle)
	if err == nil {
		err = el.Click(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		n.logger.Debug(ctx, "collapse ignored",
			logger.String("category", string(r.result.Category)),
			logger.Error(err))
	}
	r.expanded = false
	return ok(Done)
}
