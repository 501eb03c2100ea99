package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/xbklairith/aubit-poly/internal/arbitrage"
	"github.com/xbklairith/aubit-poly/internal/scanner"
	"github.com/xbklairith/aubit-poly/pkg/types"
	"go.uber.org/zap"
)

// ResultSource exposes the latest completed scan.
type ResultSource interface {
	Latest() *scanner.Result
}

// OpportunitiesHandler serves the opportunities found by the latest scan.
type OpportunitiesHandler struct {
	results ResultSource
	logger  *zap.Logger
}

// NewOpportunitiesHandler creates a new opportunities handler.
func NewOpportunitiesHandler(results ResultSource, logger *zap.Logger) *OpportunitiesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpportunitiesHandler{
		results: results,
		logger:  logger,
	}
}

// OpportunitiesResponse represents the HTTP response for scan results.
type OpportunitiesResponse struct {
	ScanID        string                   `json:"scan_id"`
	ScannedAt     time.Time                `json:"scanned_at"`
	Markets       map[types.Venue]int      `json:"markets"`
	Count         int                      `json:"count"`
	Opportunities []*arbitrage.Opportunity `json:"opportunities"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOpportunities handles GET /api/opportunities?kind=<kind>&limit=<n>.
func (h *OpportunitiesHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	kind := arbitrage.Kind(r.URL.Query().Get("kind"))
	switch kind {
	case "", arbitrage.KindInternal, arbitrage.KindCrossPlatform, arbitrage.KindHedging:
	default:
		h.writeError(w, "unknown kind: "+string(kind), http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	latest := h.results.Latest()
	if latest == nil {
		h.writeError(w, "no scan completed yet", http.StatusServiceUnavailable)
		return
	}

	opps := make([]*arbitrage.Opportunity, 0, len(latest.Opportunities))
	for _, o := range latest.Opportunities {
		if kind != "" && o.Kind != kind {
			continue
		}
		if limit > 0 && len(opps) == limit {
			break
		}
		opps = append(opps, o)
	}

	h.logger.Debug("opportunities-request-served",
		zap.String("scan-id", latest.ScanID),
		zap.String("kind", string(kind)),
		zap.Int("count", len(opps)))

	response := OpportunitiesResponse{
		ScanID:        latest.ScanID,
		ScannedAt:     latest.StartedAt,
		Markets:       latest.Markets,
		Count:         len(opps),
		Opportunities: opps,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *OpportunitiesHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
