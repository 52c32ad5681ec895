package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/akolanti/GoIndexer/internal/domain/docModel"
	"github.com/akolanti/GoIndexer/internal/index"
	"github.com/akolanti/GoIndexer/internal/ingest/chunking"
	"github.com/akolanti/GoIndexer/internal/ingest/extract"
	"github.com/akolanti/GoIndexer/internal/metrics"
	"github.com/akolanti/GoIndexer/internal/retry"
	"github.com/akolanti/GoIndexer/internal/storage"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
	"github.com/panjf2000/ants/v2"
)

// Processor is what the queue consumer and the webhook handler call. They
// never see the collaborators behind it.
type Processor interface {
	Process(ctx context.Context, ref docModel.SourceReference) docModel.ProcessingOutcome
}

type Orchestrator struct {
	extractor        extract.Extractor
	generator        *Generator
	indexWriter      index.Writer
	store            storage.ObjectStore
	chunker          *chunking.Chunker
	counter          *chunking.TokenCounter
	policy           *retry.Policy
	maxChunkTokens   int
	overlapTokens    int
	chunkConcurrency int
	deleteSource     bool
	logger           *logger_i.Logger
}

type OrchestratorConfig struct {
	Extractor        extract.Extractor
	Generator        *Generator
	IndexWriter      index.Writer
	Store            storage.ObjectStore
	Counter          *chunking.TokenCounter
	Policy           *retry.Policy
	MaxChunkTokens   int
	OverlapTokens    int
	ChunkConcurrency int
	DeleteSource     bool
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxChunkTokens <= 0 {
		cfg.MaxChunkTokens = config.ChunkMaxTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = config.OverlapTokens
	}
	if cfg.ChunkConcurrency <= 0 {
		cfg.ChunkConcurrency = config.ChunkEmbedConcurrency
	}
	return &Orchestrator{
		extractor:        cfg.Extractor,
		generator:        cfg.Generator,
		indexWriter:      cfg.IndexWriter,
		store:            cfg.Store,
		chunker:          chunking.NewChunker(cfg.Counter),
		counter:          cfg.Counter,
		policy:           cfg.Policy,
		maxChunkTokens:   cfg.MaxChunkTokens,
		overlapTokens:    cfg.OverlapTokens,
		chunkConcurrency: cfg.ChunkConcurrency,
		deleteSource:     cfg.DeleteSource,
		logger:           logger_i.NewLogger("IngestOrchestrator"),
	}
}

// Process runs one attempt for one source:
// extract -> chunk -> embed (bounded fan-out) -> upload -> optional delete.
// It never retries beyond what the retry policy already did; it classifies
// and returns.
func (o *Orchestrator) Process(ctx context.Context, ref docModel.SourceReference) docModel.ProcessingOutcome {
	log := o.logger.With("ref", ref.String())
	start := time.Now()
	outcome := o.process(ctx, log, ref)
	metrics.CaptureProcessingOutcome(string(outcome.Kind), time.Since(start))

	switch outcome.Kind {
	case docModel.OutcomeSuccess:
		log.Info("Processed source", "chunks", outcome.ChunkCount, "indexed", outcome.IndexedCount, "elapsed", time.Since(start))
	case docModel.OutcomeSkipped, docModel.OutcomeSourceNotFound:
		log.Warn("Source not processed", "kind", outcome.Kind, "reason", outcome.Reason)
	default:
		log.Error("Processing failed", "kind", outcome.Kind, "reason", outcome.Reason, "error", outcome.Err)
	}
	return outcome
}

func (o *Orchestrator) process(ctx context.Context, log *logger_i.Logger, ref docModel.SourceReference) docModel.ProcessingOutcome {
	doc, err := o.extractor.Extract(ctx, ref)
	if err != nil {
		return classifyExtractError(err)
	}

	if strings.TrimSpace(doc.FullText) == "" {
		return docModel.ProcessingOutcome{Kind: docModel.OutcomeSkipped, Reason: "no content extracted"}
	}

	chunks := o.chunk(doc)
	if len(chunks) == 0 {
		return docModel.ProcessingOutcome{Kind: docModel.OutcomeSkipped, Reason: "no chunks produced"}
	}
	o.logChunkStats(log, chunks)

	embedded := o.embedAll(ctx, chunks)
	if len(embedded) == 0 {
		return docModel.ProcessingOutcome{
			Kind:       docModel.OutcomeFatal,
			Reason:     "all chunk embeddings failed",
			ChunkCount: len(chunks),
		}
	}

	docs := BuildIndexDocuments(ref, embedded)
	err = o.policy.Do(ctx, "index upload", func(ctx context.Context) error {
		return o.indexWriter.UploadDocuments(ctx, docs)
	})
	if err != nil {
		return docModel.ProcessingOutcome{
			Kind:       docModel.OutcomeFatal,
			Reason:     "index upload failed",
			ChunkCount: len(chunks),
			Err:        err,
		}
	}

	if o.deleteSource {
		// best effort: the document is already durably indexed, a failed
		// delete must not flip the outcome
		if _, delErr := o.store.Delete(ctx, ref); delErr != nil {
			log.Error("Failed to delete source after indexing", "error", delErr)
		}
	}

	return docModel.ProcessingOutcome{
		Kind:         docModel.OutcomeSuccess,
		ChunkCount:   len(chunks),
		IndexedCount: len(docs),
	}
}

// chunk picks the strategy: page-aware for multi-page document formats,
// sentence-level for everything else.
func (o *Orchestrator) chunk(doc docModel.ExtractedDocument) []docModel.Chunk {
	if extract.PageAware(doc.ContentType) && len(doc.Pages) > 1 {
		pieces := o.chunker.ChunkPages(doc.Pages, o.maxChunkTokens)
		return o.chunker.ToChunks(pieces)
	}
	return o.chunker.ChunkText(doc.FullText, o.maxChunkTokens, o.overlapTokens)
}

// embedAll fans embedding calls out under a bounded pool. Chunks whose
// embedding permanently fails are dropped; transient exhaustion degrades to a
// zero vector so the chunk still reaches the index.
func (o *Orchestrator) embedAll(ctx context.Context, chunks []docModel.Chunk) []docModel.EmbeddedChunk {
	results := make([]docModel.EmbeddedChunk, len(chunks))
	done := make([]bool, len(chunks))

	pool, err := ants.NewPool(o.chunkConcurrency)
	if err != nil {
		o.logger.Error("Could not create embedding pool, embedding sequentially", "error", err)
		for i, chunk := range chunks {
			results[i], done[i] = o.embedOne(ctx, chunk)
		}
		return gather(results, done)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		i, chunk := i, chunk
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i], done[i] = o.embedOne(ctx, chunk)
		}); submitErr != nil {
			wg.Done()
			o.logger.Error("Embedding submit failed", "ordinal", chunk.Ordinal, "error", submitErr)
		}
	}
	wg.Wait()

	return gather(results, done)
}

func (o *Orchestrator) embedOne(ctx context.Context, chunk docModel.Chunk) (docModel.EmbeddedChunk, bool) {
	start := time.Now()
	vector, err := o.generator.Embed(ctx, chunk.Text)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))

	if err != nil {
		if retry.IsPermanent(err) {
			o.logger.Error("Chunk embedding permanently failed, dropping from batch", "ordinal", chunk.Ordinal, "error", err)
			return docModel.EmbeddedChunk{}, false
		}
		o.logger.Error("Chunk embedding exhausted retries, using zero vector fallback", "ordinal", chunk.Ordinal, "error", err)
		vector = o.generator.ZeroVector()
	}

	return docModel.EmbeddedChunk{
		Ordinal: chunk.Ordinal,
		Text:    chunk.Text,
		Vector:  vector,
	}, true
}

// gather keeps input order so ordinals survive out-of-order completion.
func gather(results []docModel.EmbeddedChunk, done []bool) []docModel.EmbeddedChunk {
	out := make([]docModel.EmbeddedChunk, 0, len(results))
	for i, ok := range done {
		if ok {
			out = append(out, results[i])
		}
	}
	return out
}

// BuildIndexDocuments derives the upload batch. Ids are a pure function of
// the source reference and the chunk ordinal.
func BuildIndexDocuments(ref docModel.SourceReference, embedded []docModel.EmbeddedChunk) []docModel.IndexDocument {
	docs := make([]docModel.IndexDocument, 0, len(embedded))
	for _, ec := range embedded {
		docs = append(docs, docModel.IndexDocument{
			Id:      docModel.IndexDocumentID(ref, ec.Ordinal),
			Content: ec.Text,
			Vector:  ec.Vector,
		})
	}
	return docs
}

func (o *Orchestrator) logChunkStats(log *logger_i.Logger, chunks []docModel.Chunk) {
	total := 0
	for _, c := range chunks {
		total += c.TokenCount
	}
	metrics.ObserveChunksPerDocument(len(chunks))
	log.Debug("Chunked source", "chunks", len(chunks), "totalTokens", total, "avgTokens", total/len(chunks))
}

func classifyExtractError(err error) docModel.ProcessingOutcome {
	switch {
	case errors.Is(err, docModel.ErrSourceNotFound):
		return docModel.ProcessingOutcome{Kind: docModel.OutcomeSourceNotFound, Reason: err.Error(), Err: err}
	case docModel.IsSkip(err):
		return docModel.ProcessingOutcome{Kind: docModel.OutcomeSkipped, Reason: err.Error(), Err: err}
	default:
		return docModel.ProcessingOutcome{Kind: docModel.OutcomeRetryable, Reason: "extraction failed", Err: err}
	}
}
