// Package api is the small operational HTTP surface: health, a manual cycle
// trigger, the catalog gap audit, and the account-facing history query. The
// full product UI lives elsewhere; this only serves what the scheduler owns.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/db"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/delivery"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/history"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/logger"
)

type CycleRunner interface {
	RunCycle(ctx context.Context, nowUTC time.Time) (delivery.CycleReport, error)
}

type GapChecker interface {
	CheckCatalogGaps(ctx context.Context) ([]db.CatalogGap, error)
}

type Deps struct {
	Runner CycleRunner
	Gaps   GapChecker
	DB     *gorm.DB
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/admin/run", func(w http.ResponseWriter, req *http.Request) {
		report, err := deps.Runner.RunCycle(req.Context(), time.Now().UTC())
		if err != nil {
			logger.Error("manual cycle run failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Get("/admin/catalog/gaps", func(w http.ResponseWriter, req *http.Request) {
		gaps, err := deps.Gaps.CheckCatalogGaps(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if gaps == nil {
			gaps = []db.CatalogGap{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"gaps": gaps})
	})

	r.Get("/users/{userID}/history", func(w http.ResponseWriter, req *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(req, "userID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		filter, err := parseHistoryFilter(req, userID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		page, err := history.Query(req.Context(), deps.DB, filter)
		if err != nil {
			logger.Error("history query failed", "user_id", userID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	return r
}

func parseHistoryFilter(req *http.Request, userID int64) (history.Filter, error) {
	q := req.URL.Query()
	filter := history.Filter{
		UserID:     userID,
		CategoryID: q.Get("category"),
		Match:      q.Get("match"),
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return history.Filter{}, err
		}
		filter.Page = page
	}
	if v := q.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil {
			return history.Filter{}, err
		}
		filter.PerPage = perPage
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return history.Filter{}, err
		}
		filter.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return history.Filter{}, err
		}
		// Inclusive end date from the UI's perspective.
		filter.To = to.AddDate(0, 0, 1)
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		logger.Info("http request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start))
	})
}
