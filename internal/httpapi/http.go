// Package httpapi serves the extraction and normalization endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"incident_extract/backfill"
	"incident_extract/extract"
	"incident_extract/internal/events"
	"incident_extract/internal/pipeline"
	"incident_extract/internal/store"
	"incident_extract/keywords"
	"incident_extract/mapper"
	"incident_extract/metrics"
	"incident_extract/queue"
)

const maxBodyBytes = 1 << 20

// Deps are the components the router serves from. Pipeline and Queue may be
// nil when the server runs without an inbox.
type Deps struct {
	Service       *extract.Service
	Store         *store.Store
	Results       *pipeline.Results
	Pipeline      *pipeline.Pipeline
	Queue         *queue.Queue
	Metrics       *metrics.Metrics
	Events        *events.Bus
	BackfillLimit int
	// BaseContext bounds work that outlives a request, such as a triggered
	// backfill.
	BaseContext context.Context
}

type Router struct {
	d Deps
}

func NewRouter(d Deps) *Router {
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	return &Router{d: d}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", r.health)
	mux.HandleFunc("GET /ops/health", r.opsHealth)
	mux.HandleFunc("GET /ops/status", r.status)
	mux.HandleFunc("POST /ops/backfill", r.backfill)
	mux.HandleFunc("POST /extract", r.extract)
	mux.HandleFunc("GET /extractions", r.extractions)
	mux.HandleFunc("POST /normalize-nested", r.normalizeNested)
	mux.HandleFunc("POST /normalize-from-transcript", r.normalizeTranscript)
	mux.HandleFunc("GET /results/{id}", r.result)
	mux.HandleFunc("GET /events", r.events)
}

// Handler returns mux wrapped with permissive CORS.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	r.Register(mux)
	return WithCORS(mux)
}

// WithCORS allows any origin. Preflight requests are answered directly.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	status := map[string]any{"status": "ok"}
	if err := r.d.Store.Health(req.Context()); err != nil {
		status["status"] = "degraded"
		status["db"] = err.Error()
		respondJSONStatus(w, http.StatusServiceUnavailable, status)
		return
	}
	if r.d.Queue != nil {
		status["queue"] = r.d.Queue.Healthy()
	}
	respondJSON(w, status)
}

func (r *Router) opsHealth(w http.ResponseWriter, req *http.Request) {
	if err := r.d.Store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	out := map[string]any{"metrics": r.d.Metrics.Snapshot()}
	if r.d.Queue != nil {
		out["queue"] = r.d.Queue.Stats()
		out["healthy"] = r.d.Queue.Healthy()
	}
	if r.d.Pipeline != nil {
		out["backfill"] = r.d.Pipeline.LastBackfill()
	}
	respondJSON(w, out)
}

func (r *Router) backfill(w http.ResponseWriter, req *http.Request) {
	if r.d.Pipeline == nil {
		http.Error(w, "inbox processing disabled", http.StatusServiceUnavailable)
		return
	}
	limit := r.d.BackfillLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	backfill.Run(r.d.BaseContext, r.d.Pipeline, limit)
	respondJSONStatus(w, http.StatusAccepted, map[string]any{"status": "queued", "limit": limit})
}

type extractRequest struct {
	Text   string `json:"text"`
	Mode   string `json:"mode"`
	Source string `json:"source"`
}

type extractResponse struct {
	ID string `json:"id,omitempty"`
	extract.Result
}

func (r *Router) extract(w http.ResponseWriter, req *http.Request) {
	var body extractRequest
	if !decodeBody(w, req, &body) {
		return
	}
	save := req.URL.Query().Get("save") == "true"
	source := firstNonEmpty(body.Source, "api")
	ctx := req.Context()

	if strings.EqualFold(strings.TrimSpace(body.Mode), "both") {
		both, err := r.d.Service.ExtractBoth(ctx, body.Text)
		if err != nil {
			writeError(w, err, http.StatusBadGateway)
			return
		}
		facts, insights := extractResponse{Result: both.Facts}, extractResponse{Result: both.Insights}
		if save {
			saved, err := r.d.Results.SaveBoth(ctx, source, body.Text, both)
			if err != nil {
				writeError(w, err, http.StatusInternalServerError)
				return
			}
			facts.ID, insights.ID = saved[0].ID, saved[1].ID
			for _, e := range saved {
				r.d.Events.Publish(events.Event{Type: events.TypeExtraction, ID: e.ID, Source: source, Detail: e.Model})
			}
		}
		respondJSON(w, map[string]extractResponse{"facts": facts, "insights": insights})
		return
	}

	mode, err := extract.ParseMode(body.Mode)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	res, err := r.d.Service.Extract(ctx, body.Text, mode)
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	out := extractResponse{Result: res}
	if save {
		e, err := r.d.Results.SaveExtraction(ctx, source, body.Text, res)
		if err != nil {
			writeError(w, err, http.StatusInternalServerError)
			return
		}
		out.ID = e.ID
		r.d.Events.Publish(events.Event{Type: events.TypeExtraction, ID: e.ID, Source: source, Detail: e.Model})
	}
	respondJSON(w, out)
}

func (r *Router) extractions(w http.ResponseWriter, req *http.Request) {
	limit := 50
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	list, err := r.d.Store.ListExtractions(req.Context(), req.URL.Query().Get("source"), limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.Extraction{}
	}
	respondJSON(w, list)
}

type savedRecord struct {
	ID       string        `json:"id"`
	FilePath string        `json:"file_path"`
	Record   mapper.Nested `json:"record"`
}

func (r *Router) normalizeNested(w http.ResponseWriter, req *http.Request) {
	var raw map[string]any
	if !decodeBody(w, req, &raw) {
		return
	}
	if raw == nil {
		http.Error(w, "record must be a JSON object", http.StatusBadRequest)
		return
	}
	n, err := mapper.Normalize(raw)
	r.d.Metrics.RecordNormalized(err, errors.Is(err, keywords.ErrSchemaViolation))
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	r.respondNested(w, req, n)
}

type transcriptRequest struct {
	Text           string `json:"text"`
	FireDataPK     *int   `json:"fire_data_pk"`
	ReportDatetime string `json:"report_datetime"`
}

func (r *Router) normalizeTranscript(w http.ResponseWriter, req *http.Request) {
	var body transcriptRequest
	if !decodeBody(w, req, &body) {
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, extract.ErrEmptyTranscript, http.StatusBadRequest)
		return
	}
	n, err := mapper.FromTranscript(body.Text, r.d.Service.Rules(), mapper.TranscriptOptions{
		FireDataPK:     body.FireDataPK,
		ReportDatetime: body.ReportDatetime,
	})
	r.d.Metrics.RecordNormalized(err, errors.Is(err, keywords.ErrSchemaViolation))
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	r.respondNested(w, req, n)
}

func (r *Router) respondNested(w http.ResponseWriter, req *http.Request, n mapper.Nested) {
	if req.URL.Query().Get("save") != "true" {
		respondJSON(w, n)
		return
	}
	rec, err := r.d.Results.SaveNormalized(req.Context(), "api", n)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	r.d.Events.Publish(events.Event{Type: events.TypeNormalized, ID: rec.ID, Source: "api"})
	respondJSON(w, savedRecord{ID: rec.ID, FilePath: rec.FilePath, Record: n})
}

func (r *Router) result(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	ctx := req.Context()
	e, err := r.d.Store.GetExtraction(ctx, id)
	if err == nil {
		respondJSON(w, map[string]any{"kind": "extraction", "result": e})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	n, err := r.d.Store.GetNormalized(ctx, id)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"kind": "normalized", "result": n})
}

// events streams result notifications as server-sent events.
func (r *Router) events(w http.ResponseWriter, req *http.Request) {
	if r.d.Events == nil {
		http.Error(w, "events disabled", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	ch, cancel := r.d.Events.Subscribe()
	defer cancel()

	// headers go out only once the subscription is live
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		case <-req.Context().Done():
			return
		case <-r.d.BaseContext.Done():
			return
		}
	}
}

func decodeBody(w http.ResponseWriter, req *http.Request, out any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(out); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps package sentinels to status codes; anything else gets
// fallback.
func writeError(w http.ResponseWriter, err error, fallback int) {
	code := fallback
	switch {
	case errors.Is(err, extract.ErrEmptyTranscript), errors.Is(err, extract.ErrInvalidMode):
		code = http.StatusBadRequest
	case errors.Is(err, keywords.ErrSchemaViolation):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code >= http.StatusInternalServerError {
		zap.L().Warn("request failed", zap.Int("status", code), zap.Error(err))
	}
	respondJSONStatus(w, code, map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, payload any) {
	respondJSONStatus(w, http.StatusOK, payload)
}

func respondJSONStatus(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("write json", zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Server wraps the handler with the timeouts used in production.
func Server(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
