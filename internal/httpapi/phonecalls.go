package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/lukasbauer/callcontrol/internal/billing"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/lukasbauer/callcontrol/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// timestampLayout is the only accepted format for call record timestamps.
const timestampLayout = "2006-01-02T15:04:05Z"

var phoneNumberPattern = regexp.MustCompile(`^\d{10,11}$`)

var errTrailingData = errors.New("unexpected data after JSON body")

type phoneCallRequest struct {
	Type        string      `json:"type"`
	Timestamp   string      `json:"timestamp"`
	CallID      json.Number `json:"call_id"`
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
}

type phoneCallResponse struct {
	CallID      int64            `json:"call_id"`
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

// callDetailResponse is the stored state of one call. Times are shown in the
// billing location.
type callDetailResponse struct {
	CallID       int64            `json:"call_id"`
	Source       string           `json:"source"`
	Destination  string           `json:"destination"`
	StartedAt    string           `json:"started_at,omitempty"`
	EndedAt      string           `json:"ended_at,omitempty"`
	Duration     string           `json:"duration,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	PricingError *string          `json:"pricing_error,omitempty"`
}

// fieldError is a validation failure tied to one request field.
type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return e.field + ": " + e.msg }

// toCallEvent validates the request the same way for every record type.
// Source and destination are only read from start records.
func (p phoneCallRequest) toCallEvent() (store.CallEvent, error) {
	if p.Type == "" {
		return store.CallEvent{}, &fieldError{"type", "This field is required."}
	}
	typ := store.RecordType(p.Type)
	if !typ.Valid() {
		return store.CallEvent{}, &fieldError{"type", `Invalid value. Valid values are: "start", "end".`}
	}

	if p.Timestamp == "" {
		return store.CallEvent{}, &fieldError{"timestamp", "This field is required."}
	}
	ts, err := time.Parse(timestampLayout, p.Timestamp)
	if err != nil {
		return store.CallEvent{}, &fieldError{"timestamp", "Invalid format."}
	}

	if p.CallID == "" {
		return store.CallEvent{}, &fieldError{"call_id", "This field is required."}
	}
	callID, err := strconv.ParseInt(p.CallID.String(), 10, 64)
	if err != nil || callID <= 0 {
		return store.CallEvent{}, &fieldError{"call_id", "A positive integer is required."}
	}

	ev := store.CallEvent{CallID: callID, Type: typ, Timestamp: ts}
	if typ != store.RecordStart {
		return ev, nil
	}

	switch {
	case p.Source == "":
		return store.CallEvent{}, &fieldError{"source", `This field is required when type is "start".`}
	case p.Destination == "":
		return store.CallEvent{}, &fieldError{"destination", `This field is required when type is "start".`}
	case !phoneNumberPattern.MatchString(p.Source):
		return store.CallEvent{}, &fieldError{"source", "Invalid number format."}
	case !phoneNumberPattern.MatchString(p.Destination):
		return store.CallEvent{}, &fieldError{"destination", "Invalid number format."}
	}
	ev.Source, ev.Destination = p.Source, p.Destination
	return ev, nil
}

// handleRecordPhoneCall stores a start or end record. The call is priced as
// soon as both are known.
func (r *Router) handleRecordPhoneCall(w http.ResponseWriter, req *http.Request) {
	var body phoneCallRequest
	if err := decodeJSON(w, req, &body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	ev, err := body.toCallEvent()
	if err != nil {
		var fe *fieldError
		if errors.As(err, &fe) {
			writeError(w, http.StatusBadRequest, apiError{Error: fe.msg, Field: fe.field})
			return
		}
		http.Error(w, `{"error": "invalid request"}`, http.StatusBadRequest)
		return
	}

	call, err := r.billing.RecordEvent(req.Context(), ev)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, phoneCallResponse{
			CallID:      call.CallID,
			Source:      call.Source,
			Destination: call.Destination,
			Price:       call.Price,
		})
	case pricing.IsConfigurationError(err):
		writeError(w, http.StatusUnprocessableEntity, apiError{
			Error:  err.Error(),
			Code:   "pricing_configuration",
			CallID: ev.CallID,
		})
	case errors.Is(err, pricing.ErrCallTooLong):
		writeError(w, http.StatusUnprocessableEntity, apiError{
			Error:  err.Error(),
			Code:   "call_too_long",
			CallID: ev.CallID,
		})
	default:
		r.logger.Error("failed to record call event", zap.Int64("call_id", ev.CallID), zap.Error(err))
		captureError(req, err, "record call event")
		http.Error(w, `{"error": "failed to record call"}`, http.StatusInternalServerError)
	}
}

func (r *Router) handleGetPhoneCall(w http.ResponseWriter, req *http.Request) {
	callID, err := strconv.ParseInt(req.PathValue("call_id"), 10, 64)
	if err != nil || callID <= 0 {
		writeError(w, http.StatusBadRequest, apiError{Error: "A positive integer is required.", Field: "call_id"})
		return
	}

	call, err := r.billing.Call(req.Context(), callID)
	if err != nil {
		if billing.IsNotFound(err) {
			writeError(w, http.StatusNotFound, apiError{Error: "call not found", CallID: callID})
			return
		}
		r.logger.Error("failed to load call", zap.Int64("call_id", callID), zap.Error(err))
		captureError(req, err, "get call")
		http.Error(w, `{"error": "failed to load call"}`, http.StatusInternalServerError)
		return
	}

	loc := r.billing.Location()
	resp := callDetailResponse{
		CallID:       call.CallID,
		Source:       call.Source,
		Destination:  call.Destination,
		Price:        call.Price,
		PricingError: call.PricingError,
	}
	if call.StartedAt != nil {
		resp.StartedAt = call.StartedAt.In(loc).Format(time.RFC3339)
	}
	if call.EndedAt != nil {
		resp.EndedAt = call.EndedAt.In(loc).Format(time.RFC3339)
	}
	if call.Complete() {
		resp.Duration = billing.FormatDuration(call.Duration())
	}
	writeJSON(w, http.StatusOK, resp)
}
