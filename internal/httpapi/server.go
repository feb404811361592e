package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JadedBlueEyes/libretto/internal"
)

// RoomService is what the API serves rooms and timelines from.
type RoomService interface {
	RoomList(ctx context.Context) (*internal.RoomList, error)
	Timeline(ctx context.Context, idOrAlias, from string, limit int) (*internal.RoomPage, error)
}

type Options struct {
	Addr           string
	PageLimit      int
	RateLimitRPS   float64
	RateLimitBurst int
}

const maxPageLimit = 1000

type Server struct {
	httpServer *http.Server
	svc        RoomService
	metrics    *Metrics
	limiter    *ipRateLimiter
	pageLimit  int
}

// timelineResponse is the body of GET /rooms/{room}/timeline.
type timelineResponse struct {
	Room          internal.RoomInfo        `json:"room"`
	Events        []internal.TimelineEvent `json:"events"`
	End           string                   `json:"end,omitempty"`
	EndOfTimeline bool                     `json:"end_of_timeline"`
}

func New(svc RoomService, opts Options) *Server {
	srv := &Server{
		svc:       svc,
		metrics:   newMetrics(),
		limiter:   newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		pageLimit: opts.PageLimit,
	}
	if srv.pageLimit <= 0 {
		srv.pageLimit = internal.DefaultPageLimit
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", srv.route("healthz", srv.handleHealthz))
	mux.Handle("GET /rooms", srv.route("rooms", srv.handleRooms))
	mux.Handle("GET /rooms/{room}/timeline", srv.route("timeline", srv.handleTimeline))
	mux.Handle("GET /metrics", srv.metrics.Handler())

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// Handler returns the root handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		internal.LogInfo("http api listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// route wraps a handler with rate limiting and request metrics.
func (s *Server) route(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newResponseRecorder(w)
		if !s.limiter.Allow(remoteIP(r)) {
			s.metrics.IncRateLimited()
			writeError(rec, http.StatusTooManyRequests, "rate limited")
		} else {
			h(rec, r)
		}
		s.metrics.ObserveRequest(name, r.Method, rec.Status(), time.Since(start))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.RoomList(r.Context())
	if err != nil {
		internal.LogError("list rooms: %v", err)
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	limit := s.pageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxPageLimit)
	}

	page, err := s.svc.Timeline(r.Context(), room, r.URL.Query().Get("from"), limit)
	switch {
	case err == nil:
	case errors.Is(err, internal.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "room not found")
		return
	case errors.Is(err, internal.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid from token")
		return
	default:
		internal.LogError("timeline for %s: %v", room, err)
		writeError(w, http.StatusInternalServerError, "timeline error")
		return
	}

	s.metrics.ObserveTimeline(page.Timeline.Events)
	events := page.Timeline.Events
	if events == nil {
		events = []internal.TimelineEvent{}
	}
	writeJSON(w, timelineResponse{
		Room:          page.Room,
		Events:        events,
		End:           page.Timeline.End,
		EndOfTimeline: page.Timeline.EndOfTimeline,
	})
}

// writeJSON encodes v before touching the response so an encoding failure
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		internal.LogError("Failed to encode response: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
