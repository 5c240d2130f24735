package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ppiankov/heritage/internal/store"
	"go.uber.org/zap"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	home, err := s.catalog.Home(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.upstreamError(w, r, err, "Unable to load monuments")
		return
	}
	s.views.render(w, r, http.StatusOK, "home.html", page{Title: "Monuments", Active: "home", Data: home})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	tl, err := s.catalog.Timeline(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		s.upstreamError(w, r, err, "Unable to load timeline")
		return
	}
	s.views.render(w, r, http.StatusOK, "timeline.html", page{Title: "Timeline", Active: "timeline", Data: tl})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.Detail(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, store.ErrNotFound) {
		s.views.render(w, r, http.StatusNotFound, "error.html", page{
			Title: "Monument Not Found",
			Data: errorView{
				Status:  http.StatusNotFound,
				Heading: "Monument Not Found",
				Message: "The monument you're looking for doesn't exist or has been removed.",
			},
		})
		return
	}
	if err != nil {
		s.upstreamError(w, r, err, "Unable to load monument")
		return
	}
	s.views.render(w, r, http.StatusOK, "detail.html", page{Title: d.Monument.Name, Data: d})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.views.render(w, r, http.StatusNotFound, "error.html", page{
		Title: "Page Not Found",
		Data: errorView{
			Status:  http.StatusNotFound,
			Heading: "Page Not Found",
			Message: "There is nothing at this address.",
		},
	})
}

// upstreamError logs a data store failure and renders a 502 page
func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, err error, heading string) {
	loggerFrom(r.Context()).Error("upstream failure", zap.String("path", r.URL.Path), zap.Error(err))
	s.views.render(w, r, http.StatusBadGateway, "error.html", page{
		Title: heading,
		Data: errorView{
			Status:  http.StatusBadGateway,
			Heading: heading,
			Message: "The monument archive is not responding. Please try again in a moment.",
		},
	})
}

func (s *Server) apiMonuments(w http.ResponseWriter, r *http.Request) {
	home, err := s.catalog.Home(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.apiError(w, r, err, http.StatusBadGateway, "unable to load monuments")
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (s *Server) apiMonument(w http.ResponseWriter, r *http.Request) {
	d, err := s.catalog.Detail(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "monument not found"})
		return
	}
	if err != nil {
		s.apiError(w, r, err, http.StatusBadGateway, "unable to load monument")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) apiTimeline(w http.ResponseWriter, r *http.Request) {
	tl, err := s.catalog.Timeline(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		s.apiError(w, r, err, http.StatusBadGateway, "unable to load timeline")
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// apiSearch backs the command palette
func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	res, err := s.catalog.Palette(r.Context(), q)
	if err != nil {
		s.apiError(w, r, err, http.StatusBadGateway, "unable to search monuments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":     q,
		"monuments": res.Monuments,
		"total":     res.Total,
		"more":      res.More(),
	})
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error, code int, msg string) {
	loggerFrom(r.Context()).Error("upstream failure", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Ready(r.Context()); err != nil {
		loggerFrom(r.Context()).Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRobots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.cfg.Robots))
}
