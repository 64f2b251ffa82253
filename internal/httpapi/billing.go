package httpapi

import (
	"errors"
	"net/http"

	"github.com/lukasbauer/callcontrol/internal/billing"
	"go.uber.org/zap"
)

// handleGetBilling returns a subscriber's bill for a closed month. period is
// optional and defaults to the previous month.
func (r *Router) handleGetBilling(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	phone := q.Get("phone_number")
	if phone == "" {
		writeError(w, http.StatusBadRequest, apiError{Error: "This field is required.", Field: "phone_number"})
		return
	}
	if !phoneNumberPattern.MatchString(phone) {
		writeError(w, http.StatusBadRequest, apiError{Error: "Invalid number format.", Field: "phone_number"})
		return
	}

	bill, err := r.billing.BillFor(req.Context(), phone, q.Get("period"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, bill)
	case errors.Is(err, billing.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, apiError{Error: "Invalid period format.", Field: "period"})
	case errors.Is(err, billing.ErrPeriodNotClosed):
		writeError(w, http.StatusBadRequest, apiError{Error: "Invalid period.", Field: "period"})
	default:
		r.logger.Error("failed to build bill", zap.String("phone", phone), zap.Error(err))
		captureError(req, err, "build bill")
		http.Error(w, `{"error": "failed to build bill"}`, http.StatusInternalServerError)
	}
}
