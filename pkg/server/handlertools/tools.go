package handlertools

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
)

var log = internal.GetLogger()

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	// Detail is set for partial uploads.
	Detail *PartialUploadDetail `json:"detail,omitempty"`
}

type PartialUploadDetail struct {
	Collection       string `json:"collection_name"`
	CompletedBatches int    `json:"completed_batches"`
	FailedBatch      int    `json:"failed_batch"`
	TotalBatches     int    `json:"total_batches"`
}

// IntFromQuery extracts a query string value and converts it to an int
// if it is not empty. If the value is empty, it returns 0.
func IntFromQuery(r *http.Request, param string) (int, error) {
	p := r.URL.Query().Get(param)
	if p == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrBadRequest, param)
	}
	return v, nil
}

// EncodeJSON writes data as a JSON response with the given status.
func EncodeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// DecodeJSON decodes a JSON request body into data. Malformed bodies are bad requests.
func DecodeJSON(r *http.Request, data any) error {
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", models.ErrBadRequest, err)
	}
	return nil
}

// StatusFor maps an error to the HTTP status it is rendered with. A partial upload
// is a 502 whatever its cause.
func StatusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrPartialUpload):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrPrecondition), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RenderError renders err as a JSON APIError with the status StatusFor picks.
func RenderError(w http.ResponseWriter, err error) {
	status := StatusFor(err)

	if status != http.StatusNotFound {
		// not found is routine
		log.Error(err)
	}

	body := APIError{Message: err.Error()}
	var partial *models.PartialUploadError
	if errors.As(err, &partial) {
		body.Detail = &PartialUploadDetail{
			Collection:       partial.Collection,
			CompletedBatches: partial.CompletedBatches,
			FailedBatch:      partial.FailedBatch,
			TotalBatches:     partial.TotalBatches,
		}
	}

	if encErr := EncodeJSON(w, status, body); encErr != nil {
		log.Errorf("failed to write error response: %v", encErr)
	}
}
