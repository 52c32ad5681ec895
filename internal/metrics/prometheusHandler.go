package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "queue_messages_received_total",
	Help: "Number of messages pulled from the queue",
})

var messagesCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "queue_messages_completed_total",
	Help: "Number of messages completed (removed from the queue)",
})

var messagesAbandoned = promauto.NewCounter(prometheus.CounterOpts{
	Name: "queue_messages_abandoned_total",
	Help: "Number of messages abandoned back to the queue for redelivery",
})

var zeroVectorFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "embedding_zero_vector_fallbacks_total",
	Help: "Chunks indexed with a zero vector after embedding retries were exhausted",
})

var chunksPerDocument = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "chunks_per_document",
	Help:    "Number of chunks produced per processed document.",
	Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) CaptureWriteHeaderMetrics(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementMessagesReceived(n int) {
	messagesReceived.Add(float64(n))
}

func IncrementMessagesCompleted() {
	messagesCompleted.Inc()
}

func IncrementMessagesAbandoned() {
	messagesAbandoned.Inc()
}

func IncrementZeroVectorFallbacks() {
	zeroVectorFallbacks.Inc()
}

func ObserveChunksPerDocument(n int) {
	chunksPerDocument.Observe(float64(n))
}

var processingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "document_processing_duration_seconds",
	Help:    "Total time spent processing a document, labelled by outcome.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
}, []string{"outcome"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureProcessingOutcome(outcome string, timeElapsed time.Duration) {
	processingDuration.WithLabelValues(outcome).Observe(timeElapsed.Seconds())
}
