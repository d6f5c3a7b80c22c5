package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MohanGuptaKoduru/ServiceLink/assistant"
	"github.com/MohanGuptaKoduru/ServiceLink/booking"
	"github.com/MohanGuptaKoduru/ServiceLink/core"
	"github.com/MohanGuptaKoduru/ServiceLink/geo"
	"github.com/MohanGuptaKoduru/ServiceLink/highlight"
	"github.com/MohanGuptaKoduru/ServiceLink/search"
	"github.com/MohanGuptaKoduru/ServiceLink/storage"
)

// ErrSearcherRequired is returned by NewServer without a searcher.
var ErrSearcherRequired = errors.New("searcher required")

const (
	searchFailedMessage = "search failed, try again"
	chatFailedReply     = "Sorry, something went wrong."
)

// TechnicianResult is one ranked technician in a search response.
type TechnicianResult struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Location    string               `json:"location"`
	Rating      float64              `json:"rating"`
	ReviewCount int                  `json:"reviewCount"`
	Available   bool                 `json:"isAvailable"`
	Languages   []string             `json:"languages"`
	Score       float64              `json:"score"`
	Highlights  highlight.Technician `json:"highlights"`
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Query      string             `json:"query"`
	Generation uint64             `json:"generation"`
	Fallback   bool               `json:"fallback"`
	Total      int                `json:"total"`
	Results    []TechnicianResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")

	limit := s.defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	availableOnly := false
	if raw := q.Get("available"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "available must be true or false"})
			return
		}
		availableOnly = b
	}

	resp, err := s.searcher.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", "query", query, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: searchFailedMessage})
		return
	}

	results := resp.Results
	if availableOnly {
		results = search.FilterAvailable(results)
	}
	total := len(results)
	results = search.Limit(results, limit)

	body := SearchResponse{
		Query:      resp.Query,
		Generation: resp.Generation,
		Fallback:   resp.QueryFallback,
		Total:      total,
		Results:    make([]TechnicianResult, len(results)),
	}
	for i, res := range results {
		t := res.Technician
		body.Results[i] = TechnicianResult{
			ID:          t.ID,
			Name:        t.Name,
			Location:    t.Location,
			Rating:      t.Rating,
			ReviewCount: t.ReviewCount,
			Available:   t.Available,
			Languages:   t.Languages,
			Score:       res.Score,
			Highlights:  highlight.HTML.Fields(t, query),
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.searcher.Refresh(r.Context()); err != nil {
		s.logger.Error("snapshot refresh failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "refresh failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MessageRequest is the body of POST /api/message.
type MessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// MessageResponse is the reply to a chat message.
type MessageResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if s.responder == nil {
		writeJSON(w, http.StatusServiceUnavailable, MessageResponse{Reply: chatFailedReply})
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "message is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = assistant.NewSessionID()
	}

	reply, err := s.responder.Reply(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("chat reply failed", "session", req.SessionID, "err", err)
		writeJSON(w, http.StatusInternalServerError, MessageResponse{Reply: chatFailedReply})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Reply: reply, SessionID: req.SessionID})
}

// RouteRequest is the body of POST /api/geo/route.
type RouteRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if s.router == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "maps are not configured"})
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "from and to are required"})
		return
	}

	route, err := s.router.Route(r.Context(), req.From, req.To)
	switch {
	case errors.Is(err, geo.ErrNoResults), errors.Is(err, geo.ErrNoRoute):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case err != nil:
		s.logger.Error("route lookup failed", "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "route lookup failed"})
	default:
		writeJSON(w, http.StatusOK, route)
	}
}

// BookingRequest is the body of POST /api/bookings.
type BookingRequest struct {
	TechnicianID    string `json:"technicianId"`
	CustomerID      string `json:"customerId"`
	CustomerName    string `json:"customerName"`
	CustomerPhone   string `json:"customerPhone"`
	CustomerAddress string `json:"customerAddress"`
}

// RateRequest is the body of POST /api/bookings/{id}/rate.
type RateRequest struct {
	Stars int `json:"stars"`
}

// BookingView is the JSON form of a booking.
type BookingView struct {
	ID              string `json:"id"`
	TechnicianID    string `json:"technicianId"`
	CustomerID      string `json:"customerId"`
	CustomerName    string `json:"customerName"`
	CustomerAddress string `json:"customerAddress"`
	Service         string `json:"service"`
	Status          string `json:"status"`
	Rating          int    `json:"rating"`
	CreatedAt       string `json:"createdAt"`
}

func bookingView(b *core.Booking) BookingView {
	return BookingView{
		ID:              b.ID,
		TechnicianID:    b.TechnicianID,
		CustomerID:      b.CustomerID,
		CustomerName:    b.CustomerName,
		CustomerAddress: b.CustomerAddress,
		Service:         b.Service,
		Status:          string(b.Status),
		Rating:          b.Rating,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) bookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, booking.ErrUnavailable),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrAlreadyRated):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrInvalidBooking), errors.Is(err, core.ErrInvalidStars):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		s.logger.Error("booking request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "booking failed"})
	}
}

func (s *Server) requireBookings(w http.ResponseWriter) bool {
	if s.bookings == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "bookings are not configured"})
		return false
	}
	return true
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if !s.requireBookings(w) {
		return
	}
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	b, err := s.bookings.Book(r.Context(), booking.Request{
		TechnicianID:    req.TechnicianID,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
	})
	if err != nil {
		s.bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingView(b))
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	if !s.requireBookings(w) {
		return
	}
	b, err := s.bookings.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingView(b))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !s.requireBookings(w) {
		return
	}
	b, err := s.bookings.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingView(b))
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	if !s.requireBookings(w) {
		return
	}
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	b, err := s.bookings.Rate(r.Context(), r.PathValue("id"), req.Stars)
	if err != nil {
		s.bookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingView(b))
}

func (s *Server) handleCustomerBookings(w http.ResponseWriter, r *http.Request) {
	if !s.requireBookings(w) {
		return
	}
	list, err := s.bookings.Customer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.bookingError(w, err)
		return
	}
	views := make([]BookingView, len(list))
	for i, b := range list {
		views[i] = bookingView(b)
	}
	writeJSON(w, http.StatusOK, views)
}
