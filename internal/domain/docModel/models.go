package docModel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceReference points at one raw input blob. It is created by whatever
// triggered processing (webhook payload or queue message) and never mutated.
type SourceReference struct {
	Container string `json:"container_name"`
	Blob      string `json:"blob_name"`
}

func (r SourceReference) String() string {
	return r.Container + "/" + r.Blob
}

// DocumentID flattens the blob path into the id prefix used for every chunk
// of this source. Reprocessing the same blob always yields the same prefix.
func (r SourceReference) DocumentID() string {
	return strings.NewReplacer("/", "_", ".", "_").Replace(r.Blob)
}

type DocType string

const (
	PDF  DocType = "PDF"
	DOCX DocType = "DOCX"
	TXT  DocType = "TXT"
	JSON DocType = "JSON"
	ERR  DocType = "ERROR"
)

// ExtractedDocument is what the extractor hands the orchestrator: the full
// text plus page contents where the format has pages. Discarded after chunking.
type ExtractedDocument struct {
	FullText    string
	Pages       []string
	ContentType DocType
}

type Chunk struct {
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

type EmbeddedChunk struct {
	Ordinal int
	Text    string
	Vector  []float32
}

// IndexDocument is the unit uploaded to the search index. Ids are derived
// deterministically so a re-upload overwrites instead of duplicating.
type IndexDocument struct {
	Id      string    `json:"id"`
	Content string    `json:"content"`
	Vector  []float32 `json:"vector"`
}

func IndexDocumentID(ref SourceReference, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", ref.DocumentID(), ordinal)
}

type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "Success"
	OutcomeSkipped        OutcomeKind = "Skipped"
	OutcomeSourceNotFound OutcomeKind = "SourceNotFound"
	OutcomeRetryable      OutcomeKind = "RetryableFailure"
	OutcomeFatal          OutcomeKind = "FatalFailure"
)

// ProcessingOutcome is produced once per SourceReference per attempt. The
// queue consumer only ever branches on Kind, never on the wrapped error.
type ProcessingOutcome struct {
	Kind         OutcomeKind `json:"kind"`
	Reason       string      `json:"reason,omitempty"`
	ChunkCount   int         `json:"chunk_count,omitempty"`
	IndexedCount int         `json:"indexed_count,omitempty"`
	Err          error       `json:"-"`
}

// Terminal reports whether the message that carried this source should be
// completed (taken off the queue) rather than abandoned for redelivery.
func (o ProcessingOutcome) Terminal() bool {
	switch o.Kind {
	case OutcomeSuccess, OutcomeSkipped, OutcomeSourceNotFound:
		return true
	}
	return false
}

// QueueMessage is borrowed from the queue for one visibility window. Token is
// the completion handle the receiver needs to ack or release it.
type QueueMessage struct {
	Id         string
	Body       []byte
	Token      string
	Received   time.Time
	Deliveries int
}

var (
	ErrSourceNotFound = errors.New("source blob not found")
	ErrMissingToken   = errors.New("message has no completion token")
)

// SkipError marks a source as permanently unprocessable by policy: wrong
// type, oversized, or empty. Consumers complete the message, never retry.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "processing skipped: " + e.Reason
}

func Skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

func IsSkip(err error) bool {
	var se *SkipError
	return errors.As(err, &se)
}
