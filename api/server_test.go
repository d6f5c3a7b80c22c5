package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohanGuptaKoduru/ServiceLink/ai/mock"
	"github.com/MohanGuptaKoduru/ServiceLink/booking"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/geo"
	"github.com/MohanGuptaKoduru/ServiceLink/search"
	"github.com/MohanGuptaKoduru/ServiceLink/storage/badger"
)

type fakeSearcher struct {
	results   []*core.SearchResult
	err       error
	refreshes int
	queries   []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*search.Response, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &search.Response{Query: query, Results: f.results, Generation: 3}, nil
}

func (f *fakeSearcher) Refresh(context.Context) error {
	f.refreshes++
	return f.err
}

type fakeRouter struct {
	route *geo.Route
	err   error
}

func (f *fakeRouter) Route(context.Context, string, string) (*geo.Route, error) {
	return f.route, f.err
}

func rankedResults() []*core.SearchResult {
	return []*core.SearchResult{
		{Technician: &core.Technician{ID: "t1", Name: "Aakash", Service: "Water Systems", Description: "Water pump repair", Available: true}, Score: 0.9},
		{Technician: &core.Technician{ID: "t2", Name: "Vikram", Service: "Carpentry", Available: false}, Score: 0.5},
		{Technician: &core.Technician{ID: "t3", Name: "Rishi", Service: "Plumbing", Available: true}, Score: 0.4},
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newTestServer(t *testing.T, searcher Searcher, opts ...Option) http.Handler {
	t.Helper()
	s, err := NewServer(searcher, opts...)
	require.NoError(t, err)
	return s.Handler()
}

func TestNewServer_RequiresSearcher(t *testing.T) {
	_, err := NewServer(nil)
	assert.ErrorIs(t, err, ErrSearcherRequired)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeSearcher{})
	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		limit    int
		wantIDs  []string
		wantCode int
	}{
		{name: "all results in rank order", target: "/api/search?q=water+pump", wantIDs: []string{"t1", "t2", "t3"}, wantCode: http.StatusOK},
		{name: "limit param", target: "/api/search?q=water&limit=1", wantIDs: []string{"t1"}, wantCode: http.StatusOK},
		{name: "default limit", target: "/api/search?q=water", limit: 2, wantIDs: []string{"t1", "t2"}, wantCode: http.StatusOK},
		{name: "available only", target: "/api/search?q=water&available=true", wantIDs: []string{"t1", "t3"}, wantCode: http.StatusOK},
		{name: "bad limit", target: "/api/search?q=water&limit=-2", wantCode: http.StatusBadRequest},
		{name: "bad available", target: "/api/search?q=water&available=maybe", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeSearcher{results: rankedResults()}, WithDefaultLimit(tt.limit))
			rec := do(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			body := decode[SearchResponse](t, rec)
			ids := make([]string, len(body.Results))
			for i, r := range body.Results {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, uint64(3), body.Generation)
		})
	}
}

func TestSearch_Highlights(t *testing.T) {
	h := newTestServer(t, &fakeSearcher{results: rankedResults()})
	rec := do(t, h, http.MethodGet, "/api/search?q=pump", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[SearchResponse](t, rec)
	require.NotEmpty(t, body.Results)
	first := body.Results[0]
	assert.Equal(t, "Aakash", first.Name)
	assert.InDelta(t, 0.9, first.Score, 1e-9)
	assert.Contains(t, first.Highlights.Description, `<span class="highlight">pump</span>`)
	assert.Equal(t, []string{"pump"}, first.Highlights.Matches)
}

func TestSearch_Failure(t *testing.T) {
	h := newTestServer(t, &fakeSearcher{err: errors.New("snapshot load failed")})
	rec := do(t, h, http.MethodGet, "/api/search?q=water", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"search failed, try again"}`, rec.Body.String())
}

func TestRefresh(t *testing.T) {
	searcher := &fakeSearcher{}
	h := newTestServer(t, searcher)

	rec := do(t, h, http.MethodPost, "/api/technicians/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, searcher.refreshes)

	searcher.err = errors.New("storage closed")
	rec = do(t, h, http.MethodPost, "/api/technicians/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMessage(t *testing.T) {
	t.Run("reply with session", func(t *testing.T) {
		responder := mock.NewMockResponder()
		h := newTestServer(t, &fakeSearcher{}, WithResponder(responder))

		rec := do(t, h, http.MethodPost, "/api/message", `{"message":"my fan is broken","sessionId":"s1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[MessageResponse](t, rec)
		assert.Equal(t, "echo: my fan is broken", body.Reply)
		assert.Equal(t, "s1", body.SessionID)
	})

	t.Run("session assigned when missing", func(t *testing.T) {
		responder := mock.NewMockResponder()
		h := newTestServer(t, &fakeSearcher{}, WithResponder(responder))

		rec := do(t, h, http.MethodPost, "/api/message", `{"message":"hello"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[MessageResponse](t, rec)
		assert.Len(t, body.SessionID, 36)
		assert.Equal(t, body.SessionID, responder.Calls()[0].SessionID)
	})

	t.Run("responder failure", func(t *testing.T) {
		responder := mock.NewMockResponder()
		responder.ReplyFunc = func(context.Context, string, string) (string, error) {
			return "", errors.New("model unavailable")
		}
		h := newTestServer(t, &fakeSearcher{}, WithResponder(responder))

		rec := do(t, h, http.MethodPost, "/api/message", `{"message":"hello"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"reply":"Sorry, something went wrong."}`, rec.Body.String())
	})

	t.Run("empty message", func(t *testing.T) {
		h := newTestServer(t, &fakeSearcher{}, WithResponder(mock.NewMockResponder()))
		rec := do(t, h, http.MethodPost, "/api/message", `{"message":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no responder", func(t *testing.T) {
		h := newTestServer(t, &fakeSearcher{})
		rec := do(t, h, http.MethodPost, "/api/message", `{"message":"hello"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRoute(t *testing.T) {
	route := &geo.Route{
		From:         geo.Coordinates{Lat: 12.97, Lon: 77.59},
		To:           geo.Coordinates{Lat: 12.93, Lon: 77.62},
		LengthMeters: 6400,
	}

	tests := []struct {
		name     string
		router   Router
		body     string
		wantCode int
	}{
		{name: "found", router: &fakeRouter{route: route}, body: `{"from":"MG Road","to":"Koramangala"}`, wantCode: http.StatusOK},
		{name: "address not found", router: &fakeRouter{err: geo.ErrNoResults}, body: `{"from":"nowhere","to":"Koramangala"}`, wantCode: http.StatusNotFound},
		{name: "no route", router: &fakeRouter{err: geo.ErrNoRoute}, body: `{"from":"MG Road","to":"Koramangala"}`, wantCode: http.StatusNotFound},
		{name: "upstream failure", router: &fakeRouter{err: geo.ErrUnexpectedStatus}, body: `{"from":"MG Road","to":"Koramangala"}`, wantCode: http.StatusBadGateway},
		{name: "missing address", router: &fakeRouter{route: route}, body: `{"from":"MG Road"}`, wantCode: http.StatusBadRequest},
		{name: "not configured", router: nil, body: `{"from":"MG Road","to":"Koramangala"}`, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.router != nil {
				opts = append(opts, WithRouter(tt.router))
			}
			h := newTestServer(t, &fakeSearcher{}, opts...)
			rec := do(t, h, http.MethodPost, "/api/geo/route", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func bookingServer(t *testing.T) (http.Handler, *core.Technician, *core.Technician) {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	added, err := repos.Technicians.AddTechnicians(context.Background(),
		&core.Technician{Name: "Rishi", Service: "Plumbing", Available: true},
		&core.Technician{Name: "Vikram", Service: "Carpentry", Available: false},
	)
	require.NoError(t, err)

	svc, err := booking.NewService(repos.Technicians, repos.Bookings)
	require.NoError(t, err)
	return newTestServer(t, &fakeSearcher{}, WithBookings(svc)), added[0], added[1]
}

func TestBookingFlow(t *testing.T) {
	h, rishi, _ := bookingServer(t)

	rec := do(t, h, http.MethodPost, "/api/bookings",
		`{"technicianId":"`+rishi.ID+`","customerId":"c1","customerName":"Meera","customerAddress":"MG Road"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[BookingView](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "Plumbing", created.Service)

	rec = do(t, h, http.MethodPost, "/api/bookings/"+created.ID+"/rate", `{"stars":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "pending bookings cannot be rated")

	rec = do(t, h, http.MethodPost, "/api/bookings/"+created.ID+"/complete", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode[BookingView](t, rec).Status)

	rec = do(t, h, http.MethodPost, "/api/bookings/"+created.ID+"/rate", `{"stars":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/bookings/"+created.ID+"/rate", `{"stars":4}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 4, decode[BookingView](t, rec).Rating)

	rec = do(t, h, http.MethodPost, "/api/bookings/"+created.ID+"/rate", `{"stars":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "bookings are rated once")

	rec = do(t, h, http.MethodPost, "/api/bookings/"+created.ID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/customers/c1/bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]BookingView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestBooking_Errors(t *testing.T) {
	h, _, vikram := bookingServer(t)

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
	}{
		{name: "unknown technician", method: http.MethodPost, target: "/api/bookings", body: `{"technicianId":"missing","customerId":"c1"}`, wantCode: http.StatusNotFound},
		{name: "unavailable technician", method: http.MethodPost, target: "/api/bookings", body: `{"technicianId":"` + vikram.ID + `","customerId":"c1"}`, wantCode: http.StatusConflict},
		{name: "malformed body", method: http.MethodPost, target: "/api/bookings", body: `{`, wantCode: http.StatusBadRequest},
		{name: "unknown booking", method: http.MethodPost, target: "/api/bookings/missing/complete", wantCode: http.StatusNotFound},
		{name: "no bookings for customer", method: http.MethodGet, target: "/api/customers/nobody/bookings", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestBooking_NotConfigured(t *testing.T) {
	h := newTestServer(t, &fakeSearcher{})
	rec := do(t, h, http.MethodPost, "/api/bookings", `{"technicianId":"t1","customerId":"c1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("servicelink_up 1\n"))
	})
	h := newTestServer(t, &fakeSearcher{}, WithMetricsHandler(metrics))
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "servicelink_up")

	h = newTestServer(t, &fakeSearcher{})
	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddleware(t *testing.T) {
	t.Run("cors preflight", func(t *testing.T) {
		h := newTestServer(t, &fakeSearcher{}, WithCORSOrigin("http://localhost:3000"))
		rec := do(t, h, http.MethodOptions, "/api/search", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("recover", func(t *testing.T) {
		panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
		h := Chain(panicky, Recover(slogDiscard()))
		rec := do(t, h, http.MethodGet, "/", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	})

	t.Run("chain order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		h := Chain(http.NotFoundHandler(), mark("outer"), mark("inner"))
		do(t, h, http.MethodGet, "/", "")
		assert.Equal(t, []string{"outer", "inner"}, order)
	})
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
