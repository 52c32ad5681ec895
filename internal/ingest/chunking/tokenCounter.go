package chunking

import (
	"github.com/akolanti/GoIndexer/internal/config"
	"github.com/akolanti/GoIndexer/pkg/logger_i"
	"github.com/pkoukk/tiktoken-go"
)

// Encoder is the pluggable tokenizer surface. The default is tiktoken's
// cl100k_base; tests plug in cheap fakes.
type Encoder interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tikEncoder struct {
	enc *tiktoken.Tiktoken
}

func (t *tikEncoder) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tikEncoder) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// TokenCounter counts tokens for budget checks. It must never fail upward:
// if the tokenizer is unavailable or blows up, it estimates by character count.
type TokenCounter struct {
	enc    Encoder
	ratio  int
	logger *logger_i.Logger
}

func NewTokenCounter() *TokenCounter {
	log := logger_i.NewLogger("TokenCounter")
	enc, err := tiktoken.GetEncoding(config.TokenizerEncoding)
	if err != nil {
		log.Warn("Failed to load tokenizer, falling back to character estimation", "encoding", config.TokenizerEncoding, "error", err)
		return &TokenCounter{ratio: config.FallbackTokenRatio, logger: log}
	}
	return &TokenCounter{enc: &tikEncoder{enc: enc}, ratio: config.FallbackTokenRatio, logger: log}
}

// NewTokenCounterWith builds a counter around a caller-supplied tokenizer.
func NewTokenCounterWith(enc Encoder) *TokenCounter {
	return &TokenCounter{enc: enc, ratio: config.FallbackTokenRatio, logger: logger_i.NewLogger("TokenCounter")}
}

func (c *TokenCounter) Count(text string) int {
	if c.enc == nil {
		return len(text) / c.ratio
	}
	n, ok := c.tryEncodeLen(text)
	if !ok {
		return len(text) / c.ratio
	}
	return n
}

// Ratio is the chars-per-token estimate used by the character-level fallback.
func (c *TokenCounter) Ratio() int {
	return c.ratio
}

// Truncate cuts text to at most maxTokens tokens. Token-level when the
// tokenizer works, character-ratio otherwise.
func (c *TokenCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if c.enc != nil {
		if out, ok := c.tryTruncate(text, maxTokens); ok {
			return out
		}
	}
	maxChars := maxTokens * c.ratio
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}

func (c *TokenCounter) tryEncodeLen(text string) (n int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Token counting failed, using character estimation", "panic", r)
			ok = false
		}
	}()
	return len(c.enc.Encode(text)), true
}

func (c *TokenCounter) tryTruncate(text string, maxTokens int) (out string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Token truncation failed, using character estimation", "panic", r)
			ok = false
		}
	}()
	tokens := c.enc.Encode(text)
	if len(tokens) <= maxTokens {
		return text, true
	}
	return c.enc.Decode(tokens[:maxTokens]), true
}
