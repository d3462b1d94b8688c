package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/appraiser/internal/adapters/http/api"
	"github.com/okian/appraiser/internal/adapters/repository"
	service "github.com/okian/appraiser/internal/app"
	"github.com/okian/appraiser/internal/domain/model"
	"github.com/okian/appraiser/pkg/logger"
)

type mockDependencies struct {
	result  model.ValuationResult
	evalErr error
	asked   []string

	topN    []api.Entry
	topNErr error
	rank    api.Entry
	rankErr error
	limits  []int
}

func (m *mockDependencies) Evaluate(_ context.Context, ign string) (model.ValuationResult, error) {
	m.asked = append(m.asked, ign)
	if m.evalErr != nil {
		return model.ValuationResult{}, m.evalErr
	}
	return m.result, nil
}

func (m *mockDependencies) TopN(_ context.Context, n int) ([]api.Entry, error) {
	m.limits = append(m.limits, n)
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockDependencies) Rank(_ context.Context, _ string) (api.Entry, error) {
	if m.rankErr != nil {
		return api.Entry{}, m.rankErr
	}
	return m.rank, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies, maxLimit int) *http.ServeMux {
	mux := http.NewServeMux()
	stats := &mockStatsProvider{stats: map[string]any{"started": true, "worker_count": 3}}
	api.NewServer(deps, stats, maxLimit).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatal(err)
	}

	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{result: model.ValuationResult{Success: true, PlayerID: "Steve"}}
		mux := newMux(deps, 100)

		Convey("Then the health endpoint serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
		})

		Convey("Then the stats endpoint returns JSON", func() {
			w := do(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then unknown paths are not found", func() {
			So(do(mux, http.MethodGet, "/unknown").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then non-GET methods are not found", func() {
			So(do(mux, http.MethodPost, "/inventory/Steve").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodDelete, "/leaderboard").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPut, "/stats").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestInventoryHandler(t *testing.T) {
	if err := logger.Init(); err != nil {
		t.Fatal(err)
	}

	Convey("Given an inventory endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps, 100)

		Convey("When the valuation succeeds", func() {
			res := model.ValuationResult{Success: true, PlayerID: "Steve"}
			res.Add(model.ValuedItem{Name: "Antler", Category: model.Category("Artifact"), USD: 1, Coins: 60000})
			res.CategoriesProcessed = 1
			deps.result = res

			w := do(mux, http.MethodGet, "/inventory/Steve")

			Convey("Then the wire payload carries the totals", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.asked, ShouldResemble, []string{"Steve"})

				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["success"], ShouldEqual, true)
				So(body["ign"], ShouldEqual, "Steve")
				So(body["total_usd"], ShouldEqual, 1.0)
				So(body["total_coins"], ShouldEqual, 60000.0)
				So(body["item_count"], ShouldEqual, 1.0)
				So(body["categories_processed"], ShouldEqual, 1.0)
				So(body["items"], ShouldHaveLength, 1)
			})
		})

		Convey("When the valuation ran but failed", func() {
			deps.result = model.Failed("Ghost", "player profile not found")
			w := do(mux, http.MethodGet, "/inventory/Ghost")

			Convey("Then it is still a 200 with success false", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["success"], ShouldEqual, false)
				So(body["error"], ShouldEqual, "player profile not found")
				So(body["ign"], ShouldEqual, "Ghost")
				So(body, ShouldNotContainKey, "items")
			})
		})

		Convey("When the name is missing", func() {
			w := do(mux, http.MethodGet, "/inventory/")

			Convey("Then it is a bad request and nothing is evaluated", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
				So(deps.asked, ShouldBeEmpty)
			})
		})

		Convey("When the service refuses the request", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{fmt.Errorf("%w: must be 1-32 characters", service.ErrInvalidName), http.StatusBadRequest, "invalid_name"},
				{service.ErrAlreadyInFlight, http.StatusConflict, "already_in_flight"},
				{fmt.Errorf("%w: queue full", service.ErrBackpressure), http.StatusTooManyRequests, "backpressure"},
				{service.ErrStopped, http.StatusServiceUnavailable, "unavailable"},
				{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
				{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
			}

			Convey("Then each error maps to its status and code", func() {
				for _, tc := range cases {
					deps.evalErr = tc.err
					w := do(mux, http.MethodGet, "/inventory/Steve")
					So(w.Code, ShouldEqual, tc.status)
					body := decodeError(w)
					So(body["code"], ShouldEqual, tc.code)
					So(body["message"], ShouldEqual, tc.err.Error())
				}
			})
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a leaderboard endpoint capped at 5", t, func() {
		deps := &mockDependencies{topN: []api.Entry{
			{Rank: 1, PlayerID: "Alex", TotalUSD: 40},
			{Rank: 2, PlayerID: "Steve", TotalUSD: 12.5},
		}}
		mux := newMux(deps, 5)

		Convey("When a valid limit is requested", func() {
			w := do(mux, http.MethodGet, "/leaderboard?limit=1")

			Convey("Then it returns that many entries", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []api.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].PlayerID, ShouldEqual, "Alex")
				So(entries[0].Rank, ShouldEqual, 1)
			})
		})

		Convey("When no limit is given", func() {
			w := do(mux, http.MethodGet, "/leaderboard")

			Convey("Then the default is bounded by the cap", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.limits, ShouldResemble, []int{5})
			})
		})

		Convey("When the limit is invalid", func() {
			for _, q := range []string{"0", "-3", "ten"} {
				w := do(mux, http.MethodGet, "/leaderboard?limit="+q)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			}
			So(deps.limits, ShouldBeEmpty)
		})

		Convey("When the limit exceeds the cap", func() {
			w := do(mux, http.MethodGet, "/leaderboard?limit=6")

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When the board is empty", func() {
			deps.topN = nil
			w := do(mux, http.MethodGet, "/leaderboard?limit=3")

			Convey("Then it returns an empty array, not null", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When the store fails", func() {
			deps.topNErr = fmt.Errorf("store offline")
			w := do(mux, http.MethodGet, "/leaderboard?limit=3")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestRankHandler(t *testing.T) {
	Convey("Given a rank endpoint", t, func() {
		deps := &mockDependencies{rank: api.Entry{Rank: 2, PlayerID: "Steve", TotalUSD: 12.5}}
		mux := newMux(deps, 100)

		Convey("When the player is ranked", func() {
			w := do(mux, http.MethodGet, "/rank/Steve")

			Convey("Then the entry is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var entry api.Entry
				So(json.Unmarshal(w.Body.Bytes(), &entry), ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)
				So(entry.PlayerID, ShouldEqual, "Steve")
			})
		})

		Convey("When the player was never valued", func() {
			deps.rankErr = repository.ErrNotFound
			w := do(mux, http.MethodGet, "/rank/Nobody")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the name is invalid", func() {
			deps.rankErr = service.ErrInvalidName
			w := do(mux, http.MethodGet, "/rank/"+strings.Repeat("x", 40))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the path has extra segments", func() {
			w := do(mux, http.MethodGet, "/rank/a/b")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
