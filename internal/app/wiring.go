package service

import (
	"context"
	"time"

	"github.com/okian/appraiser/internal/adapters/browser"
	"github.com/okian/appraiser/internal/config"
	"github.com/okian/appraiser/internal/domain/catalog"
	"github.com/okian/appraiser/internal/domain/matcher"
	"github.com/okian/appraiser/internal/domain/navigator"
	"github.com/okian/appraiser/internal/domain/valuation"
	"github.com/okian/appraiser/pkg/logger"
)

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// ChromeFromConfig builds the headless browser launcher described by cfg.
func ChromeFromConfig(cfg *config.Config) *browser.Chrome {
	return browser.NewChrome(
		browser.WithExecPath(cfg.BrowserPath),
		browser.WithBundled(cfg.BrowserBundled),
		browser.WithHeadless(cfg.Headless),
		browser.WithViewport(cfg.ViewportWidth, cfg.ViewportHeight),
		browser.WithPageLoadTimeout(millis(cfg.PageLoadTimeoutMS)),
		browser.WithElementWait(millis(cfg.ElementWaitMS)),
		browser.WithChromeLogger(logger.Named("browser")),
	)
}

// ResolverFromConfig loads the price list at cfg.CatalogPath and builds the
// name matcher over it. A missing catalog yields a resolver that matches
// nothing.
func ResolverFromConfig(ctx context.Context, cfg *config.Config) *matcher.Resolver {
	idx := catalog.Load(ctx, logger.Named("catalog"), cfg.CatalogPath)
	return matcher.New(idx,
		matcher.WithMemoSize(cfg.MatchCacheSize),
		matcher.WithLogger(logger.Named("matcher")),
	)
}

// AggregatorFromConfig builds the valuation pipeline on top of launcher.
func AggregatorFromConfig(cfg *config.Config, launcher browser.Launcher, resolver *matcher.Resolver, opts ...valuation.Option) *valuation.Aggregator {
	base := []valuation.Option{
		valuation.WithProfileURL(cfg.ProfileURLTemplate),
		valuation.WithNotFoundMarker(cfg.NotFoundMarker),
		valuation.WithSettleDelay(millis(cfg.SettleDelayMS)),
		valuation.WithScrollOffset(cfg.ScrollOffsetPX),
		valuation.WithNavigationRate(cfg.NavigationsPerSecond),
		valuation.WithNavigator(navigator.New(navigator.WithLogger(logger.Named("navigator")))),
		valuation.WithLogger(logger.Named("valuation")),
	}
	return valuation.New(launcher, resolver, append(base, opts...)...)
}
