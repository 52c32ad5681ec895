package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/akolanti/GoIndexer/internal/customHttpClient"
	"github.com/akolanti/GoIndexer/internal/embeddings"
	"github.com/akolanti/GoIndexer/internal/retry"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	api   openai.Client
	model string
}

func newOpenAIEmbedder(apiKey string, baseURL string) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.PooledClient()),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	embeddingClient = &client{
		api:   openai.NewClient(opts...),
		model: config.OpenAIEmbeddingModel,
	}
	logger.Info("OpenAI embedding client created", "model", config.OpenAIEmbeddingModel)
}

func GetOpenAIEmbeddingClient(apiKey string, baseURL string) embeddings.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		if apiKey == "" {
			logger.Error("OpenAI API key is empty")
			return
		}
		newOpenAIEmbedder(apiKey, baseURL)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func (c *client) Dimension() int {
	return int(config.EmbeddingOutputDimensionality)
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: c.model,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response has no data")
	}

	raw := resp.Data[0].Embedding
	vector := make([]float32, len(raw))
	for i, v := range raw {
		vector[i] = float32(v)
	}
	return vector, nil
}

// classify maps HTTP status codes into the retry policy's taxonomy so the
// policy never has to know about this provider's wire format.
func classify(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.StatusCode {
	case 429:
		rle := &retry.RateLimitError{Err: err}
		if apiErr.Response != nil {
			if after := apiErr.Response.Header.Get("Retry-After"); after != "" {
				if secs, perr := strconv.Atoi(after); perr == nil {
					rle.RetryAfter = time.Duration(secs) * time.Second
				}
			}
		}
		return rle
	case 400, 401, 403, 404, 405, 409, 422:
		return retry.Permanent(err)
	}
	return err
}
