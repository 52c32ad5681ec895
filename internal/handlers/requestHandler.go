package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/akolanti/GoIndexer/internal/adapter"
	"github.com/akolanti/GoIndexer/internal/api"
	"github.com/akolanti/GoIndexer/internal/domain/docModel"
	"github.com/akolanti/GoIndexer/internal/ingest"
	"github.com/akolanti/GoIndexer/internal/storage"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
)

var (
	logRH      *logger_i.Logger
	_processor ingest.Processor
	_store     *storage.LocalStore
	_enqueue   func(ctx context.Context, payload []byte) error
)

// Init wires the handlers to their services. enqueue may be nil when the
// queue is not configured; uploads then fall back to inline processing.
func Init(processor ingest.Processor, store *storage.LocalStore, enqueue func(ctx context.Context, payload []byte) error) {
	logRH = logger_i.NewLogger("RequestHandler")
	_processor = processor
	_store = store
	_enqueue = enqueue
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	return
}

// PostIndexHandler processes one blob synchronously: the caller names a
// container and blob already present in storage and gets the processing
// outcome back in the response.
func PostIndexHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		var requestData api.IndexRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the index handler reader :", "error", err)
			}
		}(r.Body)
		if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || !ValidateIndexRequest(requestData) {
			logRH.Warn("Bad index request: ", "error:", err, "request data:", requestData)
			WriteErrorResponse(w, http.StatusBadRequest, requestData.BlobName, "Bad Request")
			return
		}

		ref := docModel.SourceReference{
			Container: requestData.ContainerName,
			Blob:      requestData.BlobName,
		}
		outcome := _processor.Process(r.Context(), ref)
		writeJsonResponse(w, adapter.StatusCodeFor(outcome), adapter.ToIndexResponse(ref, outcome))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

// PostUploadHandler receives a file via multipart/form-data, writes it into
// blob storage and enqueues it for indexing. Without a queue the blob is
// processed inline before responding.
func PostUploadHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		const maxUploadSize = 32 << 20 //32mb
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		container := r.FormValue("container")
		if container == "" {
			container = "documents"
		}

		fileReader, fileMetadata, err := r.FormFile("document")
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
			return
		}
		defer fileReader.Close()

		data, err := io.ReadAll(io.LimitReader(fileReader, maxUploadSize+1))
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, fileMetadata.Filename, "Read error")
			return
		}
		if len(data) > maxUploadSize {
			WriteErrorResponse(w, http.StatusBadRequest, fileMetadata.Filename, "File too large")
			return
		}

		blobName := fmt.Sprintf("%d-%s", time.Now().UnixNano(), path.Base(fileMetadata.Filename))
		ref := docModel.SourceReference{Container: container, Blob: blobName}

		if err := _store.Put(r.Context(), ref, data); err != nil {
			logRH.Error("Couldn't write uploaded blob :", "error", err)
			WriteErrorResponse(w, http.StatusInternalServerError, blobName, "Storage error")
			return
		}

		if _enqueue != nil {
			payload, _ := json.Marshal(requestFor(ref))
			if err := _enqueue(r.Context(), payload); err != nil {
				logRH.Error("Couldn't enqueue uploaded blob, processing inline :", "error", err)
			} else {
				writeJsonResponse(w, http.StatusAccepted, api.UploadResponse{
					Container: ref.Container,
					Blob:      ref.Blob,
					Enqueued:  true,
				})
				return
			}
		}

		outcome := _processor.Process(r.Context(), ref)
		writeJsonResponse(w, adapter.StatusCodeFor(outcome), adapter.ToIndexResponse(ref, outcome))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

func requestFor(ref docModel.SourceReference) api.IndexRequest {
	return api.IndexRequest{
		ContainerName: ref.Container,
		BlobName:      ref.Blob,
	}
}

func ValidateIndexRequest(requestData api.IndexRequest) bool {
	return requestData.ContainerName != "" && requestData.BlobName != ""
}
