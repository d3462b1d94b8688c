// Package valuation scrapes a player's profile and prices the owned cosmetics.
package valuation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/okian/appraiser/internal/adapters/browser"
	"github.com/okian/appraiser/internal/domain/matcher"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/internal/domain/navigator"
	"github.com/okian/appraiser/pkg/logger"
	"github.com/okian/appraiser/pkg/metrics"
)

// Valuator produces one valuation per call.
type Valuator interface {
	Scrape(ctx context.Context, playerID string) model.ValuationResult
}

// Aggregator drives one browser session per scrape through every category
// and totals the matched prices.
type Aggregator struct {
	launcher         browser.Launcher
	resolver         *matcher.Resolver
	nav              *navigator.Navigator
	profileURL       string
	notFoundMarker   string
	settle           time.Duration
	scrollPx         int
	discoverAttempts int
	discoverPause    time.Duration
	limiter          *rate.Limiter
	logger           logger.Logger
}

var _ Valuator = (*Aggregator)(nil)

// New creates an Aggregator.
func New(launcher browser.Launcher, resolver *matcher.Resolver, opts ...Option) *Aggregator {
	a := &Aggregator{
		launcher:         launcher,
		resolver:         resolver,
		profileURL:       defaultProfileURL,
		notFoundMarker:   defaultNotFoundMarker,
		settle:           defaultSettleDelay,
		scrollPx:         defaultScrollOffset,
		discoverAttempts: defaultDiscoverAttempts,
		discoverPause:    defaultDiscoverPause,
		limiter:          rate.NewLimiter(rate.Inf, 0),
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.nav == nil {
		a.nav = navigator.New(navigator.WithLogger(a.logger))
	}
	if a.resolver == nil {
		a.resolver = matcher.New(nil)
	}
	return a
}

// ProfileURL renders the profile address for playerID.
func (a *Aggregator) ProfileURL(playerID string) string {
	return fmt.Sprintf(a.profileURL, url.PathEscape(playerID))
}

// Scrape values playerID. It never returns an error: every failure is
// reported through the result.
func (a *Aggregator) Scrape(ctx context.Context, playerID string) model.ValuationResult {
	start := time.Now()
	res := a.scrape(ctx, playerID)
	elapsed := time.Since(start)
	metrics.RecordScrape(res.Success, float64(elapsed.Milliseconds()))

	fields := []logger.Field{
		logger.String("player", playerID),
		logger.Bool("success", res.Success),
		logger.Duration("duration", elapsed),
	}
	if res.Success {
		a.logger.Info(ctx, "valuation finished", append(fields,
			logger.Int("items", res.ItemCount),
			logger.Int("categories", res.CategoriesProcessed),
			logger.Float64("total_usd", res.TotalUSD))...)
	} else {
		a.logger.Warn(ctx, "valuation failed", append(fields, logger.String("error", res.Error))...)
	}
	return res
}

func (a *Aggregator) fail(ctx context.Context, playerID, msg string, err error) model.ValuationResult {
	if err != nil {
		a.logger.Error(ctx, msg, logger.String("player", playerID), logger.Error(err))
		metrics.RecordErrorByComponent("valuation", msg)
	}
	return model.Failed(playerID, msg)
}

func (a *Aggregator) scrape(ctx context.Context, playerID string) model.ValuationResult {
	session, err := a.launcher.Launch(ctx)
	if err != nil {
		return a.fail(ctx, playerID, MsgBrowserUnavailable, err)
	}
	defer session.Close(context.WithoutCancel(ctx))

	if err := a.limiter.Wait(ctx); err != nil {
		return a.fail(ctx, playerID, MsgInterrupted, err)
	}
	if err := a.open(ctx, session, playerID); err != nil {
		return a.fail(ctx, playerID, MsgProfileLoadFailed, err)
	}
	if a.profileMissing(ctx, session) {
		return a.fail(ctx, playerID, MsgProfileNotFound, nil)
	}

	if a.scrollPx > 0 {
		if err := session.ScrollBy(ctx, a.scrollPx); err != nil {
			a.logger.Warn(ctx, "scroll failed", logger.String("player", playerID), logger.Error(err))
		}
	}

	cats, err := a.discover(ctx, session)
	if err != nil {
		return a.fail(ctx, playerID, MsgNoCategories, err)
	}

	res := model.ValuationResult{Success: true, PlayerID: playerID}
	for _, cat := range cats {
		out := a.nav.Process(ctx, session, cat)
		if out.Err != nil && !out.Skipped {
			return a.fail(ctx, playerID, MsgInterrupted, out.Err)
		}
		if !out.Processed {
			continue
		}
		res.CategoriesProcessed++
		metrics.RecordCategoryProcessed()
		for _, item := range out.Items {
			a.value(ctx, &res, item)
		}
	}
	return res
}

func (a *Aggregator) open(ctx context.Context, page browser.Page, playerID string) error {
	if err := page.Navigate(ctx, a.ProfileURL(playerID)); err != nil {
		return err
	}
	if err := page.WaitBody(ctx); err != nil {
		return err
	}
	if a.settle <= 0 {
		return nil
	}
	t := time.NewTimer(a.settle)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// profileMissing is a best-effort text probe; a read failure counts as present.
func (a *Aggregator) profileMissing(ctx context.Context, page browser.Page) bool {
	if a.notFoundMarker == "" {
		return false
	}
	text, err := page.BodyText(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(a.notFoundMarker))
}

func (a *Aggregator) discover(ctx context.Context, page browser.Page) ([]model.Category, error) {
	var cats []model.Category
	b := retry.WithMaxRetries(uint64(a.discoverAttempts-1), retry.NewConstant(a.discoverPause))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		found, raw, err := a.nav.Discover(ctx, page)
		if err != nil {
			return retry.RetryableError(err)
		}
		if raw == 0 {
			return retry.RetryableError(errNoSections)
		}
		cats = found
		return nil
	})
	return cats, err
}

func (a *Aggregator) value(ctx context.Context, res *model.ValuationResult, item model.ScrapedItem) {
	m, ok := a.resolver.Resolve(ctx, item.RawName)
	if !ok {
		metrics.RecordItemUnmatched()
		fields := []logger.Field{
			logger.String("name", item.RawName),
			logger.String("category", string(item.Category)),
		}
		if s := a.resolver.Suggest(item.RawName, defaultSuggestions); len(s) > 0 {
			fields = append(fields, logger.String("closest", s[0].Entry.Name),
				logger.Float64("similarity", s[0].Similarity))
		}
		a.logger.Warn(ctx, "item not in catalog", fields...)
		return
	}
	metrics.RecordItemValued()
	if m.Kind != matcher.ExactMatch {
		a.logger.Debug(ctx, "item matched loosely",
			logger.String("name", item.RawName),
			logger.String("entry", m.Entry.Name),
			logger.String("kind", m.Kind.String()))
	}
	res.Add(model.ValuedItem{
		Name:     m.Entry.Name,
		Category: item.Category,
		USD:      m.Entry.PriceUSD,
		Coins:    m.Entry.PriceCoins,
		Shards:   m.Entry.PriceShards,
	})
}
