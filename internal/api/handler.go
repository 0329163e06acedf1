// Package api serves the federation pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"duck-olap/internal/domain"
	"duck-olap/internal/layout"
	"duck-olap/internal/middleware"
	"duck-olap/internal/pipeline"
	"duck-olap/internal/source"
)

// Runner is the part of the pipeline the handler drives.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Synthesize(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Defaults fill in request fields the client leaves empty. The source is
// fixed by the server; clients cannot point it elsewhere.
type Defaults struct {
	Source source.ConnectionParams
	Schema string
	Table  string
	Cube   string
}

// Handler implements the HTTP endpoints.
type Handler struct {
	runner   Runner
	defaults Defaults
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(runner Runner, defaults Defaults, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{runner: runner, defaults: defaults, logger: logger}
}

// Routes registers the endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", h.Query)
		r.Post("/schema", h.Schema)
	})
}

// QueryRequest is the body of POST /v1/query and POST /v1/schema. Empty
// fields take the server defaults.
type QueryRequest struct {
	Schema string `json:"schema,omitempty"`
	Table  string `json:"table,omitempty"`
	Cube   string `json:"cube,omitempty"`
	Query  string `json:"query,omitempty"`
	// Format selects the response rendering of /v1/query: "json" (default)
	// or "table" for the text grid.
	Format string `json:"format,omitempty"`
}

// QueryResponse is the JSON body of a successful POST /v1/query.
type QueryResponse struct {
	RunID   string                   `json:"run_id"`
	Cube    string                   `json:"cube"`
	Query   string                   `json:"query"`
	Columns domain.ClassifiedColumns `json:"columns"`
	Cubes   []string                 `json:"cubes"`
	Result  layout.Document          `json:"result"`
}

// SchemaResponse is the JSON body of a successful POST /v1/schema.
type SchemaResponse struct {
	RunID          string                   `json:"run_id"`
	Columns        domain.ClassifiedColumns `json:"columns"`
	SchemaDocument string                   `json:"schema_document"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Query runs the full pipeline.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	body, req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if body.Format != "" && body.Format != "json" && body.Format != "table" {
		h.fail(w, r, domain.ErrValidation("unsupported format %q: use 'json' or 'table'", body.Format))
		return
	}

	res, err := h.runner.Run(r.Context(), req)
	if err != nil {
		body := errorBody(err)
		if res != nil {
			body.SchemaDocument = res.SchemaDocument
		}
		h.writeError(w, r, err, body)
		return
	}

	if body.Format == "table" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Run-ID", res.RunID)
		if err := pipeline.Format(res, layout.RectangularFormatter{Compact: true}, w); err != nil {
			middleware.LoggerFromContext(r.Context(), h.logger).Error("write table response", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		RunID:   res.RunID,
		Cube:    res.CellSet.Cube,
		Query:   res.Query,
		Columns: res.Columns,
		Cubes:   res.Cubes,
		Result:  layout.NewDocument(res.CellSet),
	})
}

// Schema runs discovery and synthesis only. With ?format=xml the raw
// schema document is returned.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	_, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.runner.Synthesize(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "xml") {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Header().Set("X-Run-ID", res.RunID)
		_, _ = io.WriteString(w, res.SchemaDocument)
		return
	}
	writeJSON(w, http.StatusOK, SchemaResponse{
		RunID:          res.RunID,
		Columns:        res.Columns,
		SchemaDocument: res.SchemaDocument,
	})
}

// decode reads the request body and applies the server defaults.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (QueryRequest, pipeline.Request, bool) {
	var body QueryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, err)
		} else {
			h.fail(w, r, domain.ErrValidation("invalid request body: %v", err))
		}
		return body, pipeline.Request{}, false
	}

	req := pipeline.Request{
		Source:     h.defaults.Source,
		SchemaName: firstNonEmpty(body.Schema, h.defaults.Schema),
		TableName:  firstNonEmpty(body.Table, h.defaults.Table),
		CubeName:   firstNonEmpty(body.Cube, h.defaults.Cube),
		Query:      body.Query,
	}
	if req.TableName == "" {
		h.fail(w, r, domain.ErrValidation("table is required"))
		return body, req, false
	}
	return body, req, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.writeError(w, r, err, errorBody(err))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, body Error) {
	logger := middleware.LoggerFromContext(r.Context(), h.logger)
	if body.Code >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "stage", body.Stage)
	} else {
		logger.Info("request rejected", "error", err, "stage", body.Stage, "status", body.Code)
	}
	writeJSON(w, body.Code, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
