/*
handlers.go - HTTP API handlers for the capacity engine

PURPOSE:
  Exposes the operator session via REST API. Handles HTTP request/response,
  JSON and CSV serialization, and delegates to capacity.Session.

ENDPOINTS:
  Units:
    GET    /api/units                  List unit names
    GET    /api/units/metrics          Full metrics table of the current result
    GET    /api/units/{unit}           One unit's metrics
    POST   /api/units/compute          Manual single-unit computation
    GET    /api/units/export           Metrics table as CSV

  State:
    GET    /api/state                  Statewide rollup

  Weights:
    GET    /api/weights                Category listing + active overrides
    PUT    /api/weights                Replace overrides (JSON or CSV) and recompute
    POST   /api/recompute              Recompute with the active overrides

  Session:
    POST   /api/session                Multipart CSV upload (outputs, baselines,
                                       arrivals, history)

  History:
    GET    /api/history                Ledger rows (?period= filters)
    POST   /api/history/snapshots      Append the current result under a period
    GET    /api/history/export         Ledger as CSV
    GET    /api/periods                Period labels in the ledger
    GET    /api/periods/next           Proposed label for the next snapshot

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, missing column, blank period, nothing loaded
  - 404: Unknown unit or scenario
  - 409: Reserved for ledger conflicts (not raised by uploads; a history
         table sent to a non-empty ledger is skipped and reported as
         history_ignored)
  - 500: Store failures

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/factory"
	"github.com/warp/capacity-engine/generic"
	"go.uber.org/zap"
)

// maxUploadBytes bounds the in-memory part of a multipart upload.
const maxUploadBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Session *capacity.Session
	Logger  *zap.Logger
	Now     func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given session.
func NewHandler(session *capacity.Session, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Session: session,
		Logger:  logger,
		Now:     time.Now,
	}
}

// =============================================================================
// UNIT HANDLERS
// =============================================================================

// ListUnits returns the sorted unit names.
// GET /api/units
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Session.Result(); err != nil {
		h.writeDomainError(w, "No session loaded", err)
		return
	}
	names := h.Session.Units()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, UnitListDTO{Units: names})
}

// GetMetrics returns the full current result.
// GET /api/units/metrics
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	result, err := h.Session.Result()
	if err != nil {
		h.writeDomainError(w, "No session loaded", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// GetUnit returns one unit's metrics.
// GET /api/units/{unit}
func (h *Handler) GetUnit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "unit")

	unit, err := h.Session.Unit(name)
	if err != nil {
		h.writeDomainError(w, "Failed to get unit", err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

// ComputeUnit evaluates one baseline without changing the session.
// POST /api/units/compute
func (h *Handler) ComputeUnit(w http.ResponseWriter, r *http.Request) {
	req := ComputeUnitRequest{UnitBaseline: capacity.DefaultUnitBaseline()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	writeJSON(w, http.StatusOK, h.Session.ComputeUnit(req.UnitBaseline))
}

// ExportUnits writes the current metrics table as CSV.
// GET /api/units/export
func (h *Handler) ExportUnits(w http.ResponseWriter, r *http.Request) {
	result, err := h.Session.Result()
	if err != nil {
		h.writeDomainError(w, "No session loaded", err)
		return
	}

	var buf bytes.Buffer
	if err := factory.WriteUnitMetrics(&buf, result.Units); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export unit metrics", err)
		return
	}
	writeCSV(w, "unit_metrics.csv", buf.Bytes())
}

// GetState returns the statewide rollup.
// GET /api/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.Session.State()
	if err != nil {
		h.writeDomainError(w, "No session loaded", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// =============================================================================
// WEIGHT HANDLERS
// =============================================================================

// GetWeights returns the categories found in the arrivals with their base
// weight, the active overrides, and the default weight table.
// GET /api/weights
func (h *Handler) GetWeights(w http.ResponseWriter, r *http.Request) {
	categories, overrides := h.Session.Weights()
	if categories == nil {
		categories = []capacity.CategoryWeight{}
	}
	if overrides == nil {
		overrides = []capacity.WeightOverride{}
	}
	writeJSON(w, http.StatusOK, WeightsDTO{
		Categories: categories,
		Overrides:  overrides,
		Defaults:   capacity.DefaultCategoryWeights(),
	})
}

// SetWeights replaces the active overrides and recomputes.
// The body is either JSON ({"overrides": [...]}) or a Category,Weight CSV.
// PUT /api/weights
func (h *Handler) SetWeights(w http.ResponseWriter, r *http.Request) {
	var overrides []capacity.WeightOverride

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		rows, _, err := factory.ReadOverrides(r.Body)
		if err != nil {
			h.writeDomainError(w, "Invalid overrides table", err)
			return
		}
		overrides = rows
	} else {
		var req SetWeightsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		overrides = req.Overrides
	}

	result, err := h.Session.Recompute(overrides)
	if err != nil {
		h.writeDomainError(w, "Failed to recompute", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// Recompute reruns the chain with the active overrides.
// POST /api/recompute
func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	_, overrides := h.Session.Weights()

	result, err := h.Session.Recompute(overrides)
	if err != nil {
		h.writeDomainError(w, "Failed to recompute", err)
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// uploadFields are the multipart file fields accepted by LoadSession.
var uploadFields = []string{
	factory.TableOutputs,
	factory.TableBaselines,
	factory.TableArrivals,
	factory.TableHistory,
}

// LoadSession replaces the session inputs from uploaded CSV files.
// POST /api/session
func (h *Handler) LoadSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Expected a multipart upload", err)
		return
	}

	readers := make(map[string]io.Reader, len(uploadFields))
	for _, field := range uploadFields {
		file, _, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read upload "+field, err)
			return
		}
		defer file.Close()
		readers[field] = file
	}

	tables, err := factory.ReadTables(factory.Sources{
		Outputs:   readers[factory.TableOutputs],
		Baselines: readers[factory.TableBaselines],
		Arrivals:  readers[factory.TableArrivals],
		History:   readers[factory.TableHistory],
	})
	if err != nil {
		h.writeDomainError(w, "Invalid table", err)
		return
	}

	result, err := h.Session.Load(r.Context(), tables)
	if err != nil {
		h.writeDomainError(w, "Failed to load session", err)
		return
	}

	h.setCurrentScenario("")
	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// =============================================================================
// HISTORY HANDLERS
// =============================================================================

// GetHistory returns the ledger rows, optionally for one period.
// GET /api/history?period=2025%20Q4
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Session.History(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		h.writeDomainError(w, "Failed to get history", err)
		return
	}
	if rows == nil {
		rows = []generic.Snapshot{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// CreateSnapshot appends the current result to the ledger.
// POST /api/history/snapshots
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows, err := h.Session.Snapshot(r.Context(), req.Period)
	if err != nil {
		h.writeDomainError(w, "Failed to append snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, SnapshotDTO{Period: strings.TrimSpace(req.Period), Rows: rows})
}

// ExportHistory writes the ledger as CSV.
// GET /api/history/export
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Session.History(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		h.writeDomainError(w, "Failed to get history", err)
		return
	}

	var buf bytes.Buffer
	if err := factory.WriteHistory(&buf, rows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export history", err)
		return
	}
	writeCSV(w, "capacity_history.csv", buf.Bytes())
}

// ListPeriods returns the period labels in ledger order.
// GET /api/periods
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Session.Periods(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list periods", err)
		return
	}
	if periods == nil {
		periods = []string{}
	}
	writeJSON(w, http.StatusOK, PeriodsDTO{Periods: periods})
}

// NextPeriod proposes the label of the next snapshot.
// GET /api/periods/next
func (h *Handler) NextPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Session.NextPeriod(r.Context(), h.Now())
	if err != nil {
		h.writeDomainError(w, "Failed to propose a period", err)
		return
	}
	writeJSON(w, http.StatusOK, NextPeriodDTO{Period: period})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's kind.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case generic.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case generic.IsConflict(err):
		status, code = http.StatusConflict, "conflict"
	case generic.IsClientError(err):
		status, code = http.StatusBadRequest, "invalid_input"
	}

	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	} else {
		h.Logger.Debug(message, zap.Error(err), zap.Int("status", status))
	}

	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = id
}
