package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/google/uuid"
)

type errorBody struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(kind common.Kind) int {
	switch kind {
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindAuthentication:
		return http.StatusUnauthorized
	case common.KindPolicy:
		return http.StatusForbidden
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindUpstreamVerification:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps an error to a response. Client faults carry the classified
// message; server faults carry only a correlation identifier that links back
// to the full error in the logs.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.KindOf(err)
	status := statusOf(kind)

	body := errorBody{Kind: kind.String()}

	var classified *common.Error
	if errors.As(err, &classified) {
		body.Message = classified.Message
	}

	switch kind {
	case common.KindConfiguration, common.KindInternal:
		id := uuid.NewString()
		s.logger.Error(r.Context(), "request failed",
			"correlation_id", id, "path", r.URL.Path, "error", err.Error())
		body.Message = "internal error"
		body.CorrelationID = id
	case common.KindUpstreamVerification:
		body.Retryable = true
	}

	writeJSON(w, status, errorResponse{Error: body})
}
