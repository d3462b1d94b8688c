package navigator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/appraiser/internal/adapters/browser"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/internal/domain/navigator"
	. "github.com/smartystreets/goconvey/convey"
)

type item struct {
	name     string
	owned    bool
	fallback bool
}

type section struct {
	title   string
	count   string
	options []string
	items   []item
}

func render(sections ...section) []byte {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"cosmetics\">")
	for _, s := range sections {
		b.WriteString(`<div class="cosmetic-category collapsible"><div class="category-header">`)
		fmt.Fprintf(&b, `<span class="category-title">%s</span>`, s.title)
		if s.count != "" {
			fmt.Fprintf(&b, `<span class="category-count">%s</span>`, s.count)
		}
		b.WriteString(`<button class="category-toggle">v</button></div><div class="category-body">`)
		if len(s.options) > 0 {
			b.WriteString("<select>")
			for _, o := range s.options {
				fmt.Fprintf(&b, `<option value="%s">%s</option>`, strings.ToLower(strings.ReplaceAll(o, " ", "_")), o)
			}
			b.WriteString("</select>")
		}
		for _, it := range s.items {
			fmt.Fprintf(&b, `<div class="cosmetic-item" data-owned="%t">`, it.owned)
			switch {
			case it.fallback:
				fmt.Fprintf(&b, `<span data-name>%s</span>`, it.name)
			case it.name != "":
				fmt.Fprintf(&b, `<span class="cosmetic-name">%s</span>`, it.name)
			}
			b.WriteString("</div>")
		}
		b.WriteString("</div></div>")
	}
	b.WriteString("</div></body></html>")
	return []byte(b.String())
}

var ownedFilter = []string{"All", "Owned", "Not Owned"}

// flakyPage fails the first clickFails toggle clicks with a stale error.
type flakyPage struct {
	browser.Page
	clickFails atomic.Int64
	clicks     atomic.Int64
}

func (p *flakyPage) Find(ctx context.Context, selector string) ([]browser.Element, error) {
	found, err := p.Page.Find(ctx, selector)
	return p.wrap(found), err
}

func (p *flakyPage) wrap(in []browser.Element) []browser.Element {
	out := make([]browser.Element, len(in))
	for i, e := range in {
		out[i] = &flakyElement{Element: e, page: p}
	}
	return out
}

type flakyElement struct {
	browser.Element
	page *flakyPage
}

func (e *flakyElement) Find(ctx context.Context, selector string) ([]browser.Element, error) {
	found, err := e.Element.Find(ctx, selector)
	return e.page.wrap(found), err
}

func (e *flakyElement) Click(ctx context.Context) error {
	e.page.clicks.Add(1)
	if e.page.clickFails.Add(-1) >= 0 {
		return browser.ErrStaleElement
	}
	return e.Element.Click(ctx)
}

func open(html []byte) (*flakyPage, func()) {
	ctx := context.Background()
	s, err := browser.NewSnapshot(html).Launch(ctx)
	So(err, ShouldBeNil)
	return &flakyPage{Page: s}, func() { s.Close(ctx) }
}

func fast(opts ...navigator.Option) *navigator.Navigator {
	base := []navigator.Option{
		navigator.WithClickRetry(3, time.Millisecond),
		navigator.WithLookupRetry(3, time.Millisecond),
	}
	return navigator.New(append(base, opts...)...)
}

func names(items []model.ScrapedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.RawName)
	}
	return out
}

func TestParseOwnedCount(t *testing.T) {
	Convey("ParseOwnedCount", t, func() {
		cases := []struct {
			in           string
			owned, total int
			ok           bool
		}{
			{"5/295", 5, 295, true},
			{"[5/295]", 5, 295, true},
			{" [ 12 / 40 ] owned", 12, 40, true},
			{"0/50", 0, 50, true},
			{"bad", 0, 0, false},
			{"", 0, 0, false},
			{"5 of 295", 0, 0, false},
		}
		for _, c := range cases {
			owned, total, ok := navigator.ParseOwnedCount(c.in)
			So(ok, ShouldEqual, c.ok)
			So(owned, ShouldEqual, c.owned)
			So(total, ShouldEqual, c.total)
		}
	})
}

func TestDiscover(t *testing.T) {
	Convey("Given a page with known and unknown sections", t, func() {
		page, done := open(render(
			section{title: "Cape", count: "0/5"},
			section{title: "Emotes", count: "1/5"},
			section{title: " artifact ", count: "1/5"},
		))
		defer done()

		Convey("Discover should keep page order and drop unknown headers", func() {
			cats, raw, err := fast().Discover(context.Background(), page)
			So(err, ShouldBeNil)
			So(raw, ShouldEqual, 3)
			So(cats, ShouldResemble, []model.Category{model.CategoryCape, model.CategoryArtifact})
		})
	})
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	Convey("Given an Artifact section with one owned item", t, func() {
		page, done := open(render(section{
			title:   "Artifact",
			count:   "1/10",
			options: ownedFilter,
			items:   []item{{name: "Antler", owned: true}, {name: "Halo"}},
		}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryArtifact)

		Convey("Then only the owned item should be enumerated", func() {
			So(res.Processed, ShouldBeTrue)
			So(res.Skipped, ShouldBeFalse)
			So(res.Owned, ShouldEqual, 1)
			So(res.Total, ShouldEqual, 10)
			So(names(res.Items), ShouldResemble, []string{"Antler"})
			So(res.Items[0].Category, ShouldEqual, model.CategoryArtifact)
		})

		Convey("Then the section should be expanded then collapsed", func() {
			So(page.clicks.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given a section with zero owned", t, func() {
		page, done := open(render(section{title: "Mount", count: "[0/50]", options: ownedFilter}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryMount)

		Convey("Then it should short-circuit without expanding", func() {
			So(res.Skipped, ShouldBeTrue)
			So(res.Reason, ShouldEqual, navigator.ReasonNoneOwned)
			So(res.Processed, ShouldBeFalse)
			So(page.clicks.Load(), ShouldEqual, 0)
		})
	})

	Convey("Given an unparsable counter", t, func() {
		page, done := open(render(section{title: "Cape", count: "bad", options: ownedFilter}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryCape)
		So(res.Skipped, ShouldBeTrue)
		So(res.Reason, ShouldEqual, navigator.ReasonBadCount)
	})

	Convey("Given a section without a counter", t, func() {
		page, done := open(render(section{title: "Cape", options: ownedFilter}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryCape)
		So(res.Reason, ShouldEqual, navigator.ReasonNoCounter)
	})

	Convey("Given a category absent from the page", t, func() {
		page, done := open(render(section{title: "Cape", count: "1/2"}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryProjectile)
		So(res.Skipped, ShouldBeTrue)
		So(res.Reason, ShouldEqual, navigator.ReasonNotFound)
		So(errors.Is(res.Err, navigator.ErrSectionMissing), ShouldBeTrue)
	})

	Convey("Given a toggle that goes stale twice", t, func() {
		page, done := open(render(section{
			title: "Artifact", count: "1/10", options: ownedFilter,
			items: []item{{name: "Antler", owned: true}},
		}))
		defer done()
		page.clickFails.Store(2)

		res := fast().Process(ctx, page, model.CategoryArtifact)

		Convey("Then the third attempt should expand it", func() {
			So(res.Processed, ShouldBeTrue)
			So(names(res.Items), ShouldResemble, []string{"Antler"})
		})
	})

	Convey("Given a toggle that never clicks", t, func() {
		page, done := open(render(section{
			title: "Artifact", count: "1/10", options: ownedFilter,
			items: []item{{name: "Antler", owned: true}},
		}))
		defer done()
		page.clickFails.Store(100)

		res := fast().Process(ctx, page, model.CategoryArtifact)

		Convey("Then the category should be skipped after three attempts", func() {
			So(res.Skipped, ShouldBeTrue)
			So(res.Reason, ShouldEqual, navigator.ReasonExpandFailed)
			So(errors.Is(res.Err, browser.ErrStaleElement), ShouldBeTrue)
			So(page.clicks.Load(), ShouldEqual, 3)
		})
	})

	Convey("Given a filter without an owned option", t, func() {
		page, done := open(render(section{
			title: "Killphrase", count: "2/10", options: []string{"All", "Not Owned"},
			items: []item{{name: "GG", owned: true}},
		}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryKillphrase)

		Convey("Then it should skip and still collapse the section", func() {
			So(res.Skipped, ShouldBeTrue)
			So(res.Reason, ShouldEqual, navigator.ReasonNoFilter)
			So(errors.Is(res.Err, navigator.ErrNoOwnedOption), ShouldBeTrue)
			So(page.clicks.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given an owned option with an unusual label", t, func() {
		page, done := open(render(section{
			title: "Cape", count: "1/3", options: []string{"All", "Not Owned", "My Owned (1)"},
			items: []item{{name: "Ruby Cape", owned: true}, {name: "Blue Cape"}},
		}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryCape)

		Convey("Then the substring fallback should pick it", func() {
			So(res.Processed, ShouldBeTrue)
			So(names(res.Items), ShouldResemble, []string{"Ruby Cape"})
		})
	})

	Convey("Given items with fallback and missing names", t, func() {
		page, done := open(render(section{
			title: "Projectile", count: "3/9", options: ownedFilter,
			items: []item{
				{name: "Arrow", owned: true},
				{owned: true},
				{name: "Bolt", owned: true, fallback: true},
			},
		}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryProjectile)

		Convey("Then unreadable items should be skipped individually", func() {
			So(res.Processed, ShouldBeTrue)
			So(names(res.Items), ShouldResemble, []string{"Arrow", "Bolt"})
		})
	})

	Convey("Given owned items that never render", t, func() {
		page, done := open(render(section{title: "Artifact", count: "2/10", options: ownedFilter}))
		defer done()

		res := fast().Process(ctx, page, model.CategoryArtifact)
		So(res.Skipped, ShouldBeTrue)
		So(res.Reason, ShouldEqual, navigator.ReasonNoItems)
	})

	Convey("Given a cancelled context", t, func() {
		page, done := open(render(section{title: "Artifact", count: "1/10", options: ownedFilter}))
		defer done()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res := fast().Process(cctx, page, model.CategoryArtifact)
		So(errors.Is(res.Err, context.Canceled), ShouldBeTrue)
		So(res.Processed, ShouldBeFalse)
	})
}

func TestStateNames(t *testing.T) {
	Convey("States and outcomes should have readable names", t, func() {
		So(navigator.Locate.String(), ShouldEqual, "locate")
		So(navigator.SelectOwnedFilter.String(), ShouldEqual, "select_owned_filter")
		So(navigator.Done.String(), ShouldEqual, "done")
		So(navigator.Skip.String(), ShouldEqual, "skip")
		So(navigator.Fatal.String(), ShouldEqual, "fatal")
	})
}
