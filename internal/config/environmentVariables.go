package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	NoAuthBypass = true //local dev only, flip off before exposing the server
	AuthToken    = "change-me"

	//chunking
	ChunkMaxTokens     = 4000
	OverlapTokens      = 200
	TokenizerEncoding  = "cl100k_base"
	FallbackTokenRatio = 4 //rough estimate: 1 token ~ 4 chars when the tokenizer is unavailable

	//embeddings
	EmbeddingMaxTokens                  = 8000 //service-side ceiling, text is truncated above this
	EmbeddingOutputDimensionality int32 = 1536
	OpenAIEmbeddingModel                = "text-embedding-ada-002"
	GoogleEmbeddingModel                = "gemini-embedding-001"

	//retry policy
	MaxRetries       = 3
	RetryDelay       = 2 * time.Second
	RateLimitMinWait = 60 * time.Second
	RateLimitMaxWait = 300 * time.Second

	//queue consumption
	QueueBatchSize         = 10
	QueueReceiveWait       = 5 * time.Second
	MessageConcurrency     = 5
	ChunkEmbedConcurrency  = 3
	ReceiveErrorSleep      = 5 * time.Second
	QueuePendingKey        = "indexq:pending"
	QueueProcessingKey     = "indexq:processing"
	QueueDeadKey           = "indexq:dead"
	QueueDeliveriesKey     = "indexq:deliveries"
	QueueMaxDeliveries     = 5 //abandoned this many times -> dead letter list
	DeleteSourceAfterIndex = true
	MaxSourceFileSizeBytes = 100 << 20 //100mb, larger blobs are skipped
	ProcessAttemptTimeout  = 10 * time.Minute

	//index
	IndexCollectionName = "document-index"

	//outbound http pooling
	MaxIdleConns        = 100
	MaxIdleConnsPerHost = 10
	IdleConnTimeout     = 90 * time.Second

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//vectorDB
	QdrantHost             = ""
	QdrantPort             = 6333 //http
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false //set for https
	QdrantPoolSize         = 1     //2-5 is preferred for prod according to documentation
	QdrantKeepAliveTimeout = 30 * time.Second

	//object storage root - blobs live under <root>/<container>/<object>
	StorageRootDir = "blob_data"

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""
	RedisQueueDB  = 0
)
