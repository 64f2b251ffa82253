package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/lukasbauer/callcontrol/internal/billing"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type pricingRulesResponse struct {
	Rules    pricing.Schedule      `json:"rules"`
	Gaps     []pricing.Window      `json:"gaps"`
	Overlaps []pricing.RuleOverlap `json:"overlaps"`
}

func newPricingRulesResponse(rules pricing.Schedule) pricingRulesResponse {
	resp := pricingRulesResponse{
		Rules:    rules,
		Gaps:     pricing.CoverageGaps(rules),
		Overlaps: pricing.Overlaps(rules),
	}
	if resp.Rules == nil {
		resp.Rules = pricing.Schedule{}
	}
	if resp.Gaps == nil {
		resp.Gaps = []pricing.Window{}
	}
	if resp.Overlaps == nil {
		resp.Overlaps = []pricing.RuleOverlap{}
	}
	return resp
}

func (r *Router) handleGetPricingRules(w http.ResponseWriter, req *http.Request) {
	rules, err := r.billing.Rules(req.Context())
	if err != nil {
		r.logger.Error("failed to load pricing rules", zap.Error(err))
		captureError(req, err, "load pricing rules")
		http.Error(w, `{"error": "failed to load pricing rules"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, newPricingRulesResponse(rules))
}

// handleReplacePricingRules installs a whole new schedule. The order of the
// rules is kept; it decides which rule supplies the standing charge.
func (r *Router) handleReplacePricingRules(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Rules pricing.Schedule `json:"rules"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	err := r.billing.ReplaceRules(req.Context(), body.Rules)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, newPricingRulesResponse(body.Rules))
	case pricing.IsConfigurationError(err):
		writeError(w, http.StatusBadRequest, apiError{Error: err.Error(), Code: "invalid_rule"})
	default:
		r.logger.Error("failed to replace pricing rules", zap.Error(err))
		captureError(req, err, "replace pricing rules")
		http.Error(w, `{"error": "failed to replace pricing rules"}`, http.StatusInternalServerError)
	}
}

type quoteResponse struct {
	Price    decimal.Decimal `json:"price"`
	Display  string          `json:"display"`
	Duration string          `json:"duration"`
}

// handleQuote prices an arbitrary interval against the live schedule.
func (r *Router) handleQuote(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if body.Start.IsZero() || body.End.IsZero() {
		writeError(w, http.StatusBadRequest, apiError{Error: "start and end are required"})
		return
	}

	price, err := r.billing.Quote(req.Context(), body.Start, body.End)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, quoteResponse{
			Price:    price,
			Display:  billing.FormatCurrency(price),
			Duration: billing.FormatDuration(body.End.Sub(body.Start)),
		})
	case pricing.IsConfigurationError(err):
		writeError(w, http.StatusUnprocessableEntity, apiError{Error: err.Error(), Code: "pricing_configuration"})
	case errors.Is(err, pricing.ErrCallTooLong):
		writeError(w, http.StatusUnprocessableEntity, apiError{Error: err.Error(), Code: "call_too_long"})
	default:
		r.logger.Error("failed to quote", zap.Error(err))
		captureError(req, err, "quote")
		http.Error(w, `{"error": "failed to quote"}`, http.StatusInternalServerError)
	}
}
