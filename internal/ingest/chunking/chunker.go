package chunking

import (
	"regexp"
	"strings"

	"github.com/akolanti/GoIndexer/internal/domain/docModel"
)

// sentence boundaries: ., ! or ? runs followed by whitespace or end-of-string
var sentenceEndings = regexp.MustCompile(`[.!?]+(\s+|$)`)

// Chunker splits text into token-bounded pieces without breaking sentences
// where it can avoid it. All decisions run through one TokenCounter, so the
// same input with the same budgets always produces byte-identical output.
type Chunker struct {
	counter *TokenCounter
}

func NewChunker(counter *TokenCounter) *Chunker {
	return &Chunker{counter: counter}
}

// ChunkText splits text into chunks of at most maxTokens tokens, carrying
// overlapTokens of trailing context from each chunk into the next.
func (c *Chunker) ChunkText(text string, maxTokens, overlapTokens int) []docModel.Chunk {
	return c.ToChunks(c.chunkStrings(text, maxTokens, overlapTokens))
}

// ToChunks assigns ordinals and token counts to raw chunk strings.
func (c *Chunker) ToChunks(pieces []string) []docModel.Chunk {
	chunks := make([]docModel.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, docModel.Chunk{
			Ordinal:    i,
			Text:       text,
			TokenCount: c.counter.Count(text),
		})
	}
	return chunks
}

func (c *Chunker) chunkStrings(text string, maxTokens, overlapTokens int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.counter.Count(text) <= maxTokens {
		return []string{text}
	}

	var chunks []string
	current := ""
	currentTokens := 0

	for _, sentence := range splitSentences(text) {
		sentenceTokens := c.counter.Count(sentence)

		switch {
		case sentenceTokens > maxTokens:
			// the sentence alone busts the budget: flush and split it down
			if strings.TrimSpace(current) != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}
			pieces := c.splitLongSentence(sentence, maxTokens)
			current = ""
			if len(pieces) > 0 {
				chunks = append(chunks, pieces[:len(pieces)-1]...)
				current = pieces[len(pieces)-1]
			}
			currentTokens = c.counter.Count(current)

		case currentTokens+sentenceTokens > maxTokens:
			if strings.TrimSpace(current) != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}
			// overlap is always trailing context from the chunk being closed
			overlap := c.overlapText(current, overlapTokens)
			if overlap != "" {
				current = overlap + " " + sentence
			} else {
				current = sentence
			}
			currentTokens = c.counter.Count(current)

		default:
			if current != "" {
				current += " " + sentence
			} else {
				current = sentence
			}
			currentTokens += sentenceTokens
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// ChunkPages keeps whole pages together while they fit the budget, only
// falling back to sentence-level splitting when one page is itself oversized.
func (c *Chunker) ChunkPages(pages []string, maxTokens int) []string {
	if len(pages) == 0 {
		return nil
	}

	var chunks []string
	current := ""
	currentTokens := 0

	for _, page := range pages {
		pageTokens := c.counter.Count(page)

		if pageTokens > maxTokens {
			if strings.TrimSpace(current) != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}
			current = ""
			currentTokens = 0

			// no overlap here - the page pieces already share sentence context
			pieces := c.chunkStrings(page, maxTokens, 0)
			if len(pieces) > 0 {
				chunks = append(chunks, pieces[:len(pieces)-1]...)
				current = pieces[len(pieces)-1]
				currentTokens = c.counter.Count(current)
			}
			continue
		}

		switch {
		case current == "":
			current = page
			currentTokens = pageTokens
		case currentTokens+pageTokens > maxTokens:
			chunks = append(chunks, strings.TrimSpace(current))
			current = page
			currentTokens = pageTokens
		default:
			current += "\n\n" + page
			currentTokens += pageTokens
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

func splitSentences(text string) []string {
	parts := sentenceEndings.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// splitLongSentence breaks an oversized sentence word-by-word; a single word
// over the budget is split by raw characters as the last resort.
func (c *Chunker) splitLongSentence(sentence string, maxTokens int) []string {
	var chunks []string
	current := ""

	for _, word := range strings.Fields(sentence) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if c.counter.Count(candidate) > maxTokens {
			if current != "" {
				chunks = append(chunks, current)
				current = word
			} else {
				chunks = append(chunks, c.splitByCharacters(word, maxTokens)...)
				current = ""
			}
		} else {
			current = candidate
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func (c *Chunker) splitByCharacters(text string, maxTokens int) []string {
	maxChars := maxTokens * c.counter.Ratio()
	var chunks []string
	for i := 0; i < len(text); i += maxChars {
		end := i + maxChars
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
	}
	return chunks
}

// overlapText walks backward word-by-word from the end of a flushed chunk,
// accumulating words until the overlap budget would be exceeded.
func (c *Chunker) overlapText(text string, overlapTokens int) string {
	if overlapTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	overlap := ""
	for i := len(words) - 1; i >= 0; i-- {
		candidate := strings.Join(words[i:], " ")
		if c.counter.Count(candidate) > overlapTokens {
			break
		}
		overlap = candidate
	}
	return overlap
}
