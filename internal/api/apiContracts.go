package api

type IndexExternalStatus string

const (
	IndexStatusError IndexExternalStatus = "Error"
)

type IndexResponse struct {
	Id        string         `json:"id" example:"reports_q3_pdf"`
	Container string         `json:"container,omitempty" example:"documents"`
	Blob      string         `json:"blob,omitempty" example:"reports/q3.pdf"`
	Result    Result         `json:"result"`
	Error     *OutgoingError `json:"error,omitempty"`
}

type OutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"source blob not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
	ChunkCount   int    `json:"chunk_count,omitempty"`
	IndexedCount int    `json:"indexed_count,omitempty"`
}

type UploadResponse struct {
	Container string `json:"container"`
	Blob      string `json:"blob"`
	Enqueued  bool   `json:"enqueued"`
}

// requests---------------------

type IndexRequest struct {
	ContainerName string `json:"container_name" validate:"required"`
	BlobName      string `json:"blob_name" validate:"required"`
}
