package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
	"salesdash/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	d, err := s.dash.Build(r.Context(), ParseSelection(r.URL.Query()))
	if err != nil {
		s.renderError(w, r, err, false)
		return
	}

	data := newPageData(d, s.dash.Settings(), requestIDFrom(r.Context()), s.publisher != nil)
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDashboardAPI(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	d, err := s.dash.Build(r.Context(), ParseSelection(r.URL.Query()))
	if err != nil {
		s.renderError(w, r, err, true)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type refreshResponse struct {
	Status           string `json:"status"`
	CacheInvalidated bool   `json:"cache_invalidated"`
	Published        bool   `json:"published"`
	RequestID        string `json:"request_id"`
}

// handleRefresh drops the cached fetch and asks the worker to re-mirror.
// Form posts carrying a local redirect target are sent back to the page.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx)

	resp := refreshResponse{Status: "refreshing", RequestID: requestIDFrom(ctx)}
	if s.invalidator != nil {
		s.invalidator.Invalidate()
		resp.CacheInvalidated = true
	}
	if s.publisher != nil {
		msg := amqp.NewRefreshMessage(s.dash.Source(), "manual")
		if err := s.publisher.PublishRefresh(ctx, msg); err != nil {
			logger.WarnContext(ctx, "Refresh message not published",
				log.FieldOperation, log.OpRefresh,
				log.FieldError, err)
		} else {
			resp.Published = true
		}
	}
	logger.InfoContext(ctx, "Refresh requested",
		log.FieldSource, s.dash.Source(),
		"cache_invalidated", resp.CacheInvalidated,
		"published", resp.Published)

	if target := r.FormValue("redirect"); isLocalRedirect(target) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the source can be fetched and matches the
// configured columns.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{"templates": "ok"}
	if err := s.dash.Check(ctx); err != nil {
		status, code = "not_ready", http.StatusServiceUnavailable
		checks["source"] = map[string]any{
			"status": "failed",
			"kind":   core.KindOf(err),
		}
		s.logger.WarnContext(ctx, "Readiness check failed",
			log.FieldSource, s.dash.Source(),
			log.FieldError, err)
	} else {
		checks["source"] = map[string]any{"status": "ok", "id": s.dash.Source()}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// errorMessage is shown for every failure; details stay in the logs.
const errorMessage = "データの読み込み中または処理中にエラーが発生しました。"

// renderError logs err and writes a generic message with the checklist for
// its kind. Fetch failures are upstream problems and map to 502.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error, asJSON bool) {
	ctx := r.Context()
	kind := core.KindOf(err)
	status := http.StatusInternalServerError
	if kind == core.KindFetch {
		status = http.StatusBadGateway
	}

	fields := []any{
		log.FieldError, err,
		log.FieldErrorKind, string(kind),
		log.FieldPath, r.URL.Path,
	}
	var typed *core.Error
	if errors.As(err, &typed) {
		for k, v := range typed.Context {
			fields = append(fields, k, v)
		}
	}
	log.FromContext(ctx).ErrorContext(ctx, "Dashboard build failed", fields...)

	data := errorPageData{
		Title:     "営業成績ダッシュボード",
		Message:   errorMessage,
		Kind:      kind,
		Guidance:  core.Guidance(kind),
		RequestID: requestIDFrom(ctx),
	}

	if asJSON {
		writeJSON(w, status, map[string]any{
			"error":      data.Message,
			"kind":       data.Kind,
			"guidance":   data.Guidance,
			"request_id": data.RequestID,
		})
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "error.html", data); err != nil {
		http.Error(w, errorMessage, status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

// isLocalRedirect accepts absolute paths on this host only.
func isLocalRedirect(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.Contains(target, "\\")
}
