package adapter

import (
	"net/http"

	"github.com/akolanti/GoIndexer/internal/api"
	"github.com/akolanti/GoIndexer/internal/domain/docModel"
)

func ToIndexResponse(ref docModel.SourceReference, outcome docModel.ProcessingOutcome) api.IndexResponse {

	var errorPtr *api.OutgoingError
	if outcome.Kind == docModel.OutcomeRetryable || outcome.Kind == docModel.OutcomeFatal || outcome.Kind == docModel.OutcomeSourceNotFound {
		errorPtr = &api.OutgoingError{
			Code:    StatusCodeFor(outcome),
			Message: outcome.Reason,
			Retry:   outcome.Kind == docModel.OutcomeRetryable,
		}
	}

	return api.IndexResponse{
		Id:        ref.DocumentID(),
		Container: ref.Container,
		Blob:      ref.Blob,
		Result: api.Result{
			Status:       string(outcome.Kind),
			Reason:       outcome.Reason,
			ChunkCount:   outcome.ChunkCount,
			IndexedCount: outcome.IndexedCount,
		},
		Error: errorPtr,
	}
}

// StatusCodeFor maps a processing outcome onto the synchronous webhook
// response. Queue consumers never look at this, they branch on Terminal().
func StatusCodeFor(outcome docModel.ProcessingOutcome) int {
	switch outcome.Kind {
	case docModel.OutcomeSuccess, docModel.OutcomeSkipped:
		return http.StatusOK
	case docModel.OutcomeSourceNotFound:
		return http.StatusNotFound
	case docModel.OutcomeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(id string, error string, code int) api.IndexResponse {
	return api.IndexResponse{
		Id: id,
		Result: api.Result{
			Status: string(api.IndexStatusError),
		},
		Error: &api.OutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
