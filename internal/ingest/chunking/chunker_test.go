package chunking

import (
	"strings"
	"testing"
)

// wordEncoder treats every whitespace-separated word as one token so tests
// don't depend on downloading the real BPE files.
type wordEncoder struct{}

func (wordEncoder) Encode(text string) []int {
	return make([]int, len(strings.Fields(text)))
}

func (wordEncoder) Decode(tokens []int) string {
	return strings.Repeat("w ", len(tokens))
}

func testChunker() *Chunker {
	return NewChunker(NewTokenCounterWith(wordEncoder{}))
}

func TestChunkTextFitsInOneChunk(t *testing.T) {
	c := testChunker()
	chunks := c.ChunkText("Short text. Nothing to split here.", 100, 10)

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Ordinal != 0 {
		t.Errorf("Expected ordinal 0, got %d", chunks[0].Ordinal)
	}
}

func TestChunkTextRespectsBudget(t *testing.T) {
	c := testChunker()
	counter := NewTokenCounterWith(wordEncoder{})

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("one two three four five. ")
	}

	maxTokens := 20
	chunks := c.ChunkText(b.String(), maxTokens, 0)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if got := counter.Count(chunk.Text); got > maxTokens {
			t.Errorf("Chunk %d has %d tokens, budget is %d", chunk.Ordinal, got, maxTokens)
		}
	}
}

func TestChunkTextOrdinalsAreSequential(t *testing.T) {
	c := testChunker()

	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("alpha beta gamma delta. ")
	}

	chunks := c.ChunkText(b.String(), 10, 0)
	for i, chunk := range chunks {
		if chunk.Ordinal != i {
			t.Errorf("Chunk %d has ordinal %d", i, chunk.Ordinal)
		}
	}
}

func TestChunkTextOverlapCarriesTrailingContext(t *testing.T) {
	c := testChunker()

	text := "first sentence has exactly six words here. second sentence also has exactly six words. third sentence rounds out the whole text."
	chunks := c.ChunkText(text, 8, 3)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	// the opening words of each later chunk must be the closing words of the
	// previous one
	for i := 1; i < len(chunks); i++ {
		firstWords := strings.Fields(chunks[i].Text)
		if len(firstWords) == 0 {
			t.Fatalf("Chunk %d is empty", i)
		}
		if !strings.Contains(chunks[i-1].Text, firstWords[0]) {
			t.Errorf("Chunk %d does not start with context from chunk %d: %q", i, i-1, chunks[i].Text)
		}
	}
}

func TestChunkTextIsDeterministic(t *testing.T) {
	c := testChunker()

	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("repeatable input text for every run. ")
	}
	text := b.String()

	first := c.ChunkText(text, 12, 4)
	second := c.ChunkText(text, 12, 4)

	if len(first) != len(second) {
		t.Fatalf("Chunk counts differ between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("Chunk %d differs between runs", i)
		}
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	c := testChunker()
	if chunks := c.ChunkText("   \n\t  ", 10, 2); len(chunks) != 0 {
		t.Errorf("Expected no chunks for whitespace input, got %d", len(chunks))
	}
}

func TestChunkTextOversizedSentence(t *testing.T) {
	c := testChunker()
	counter := NewTokenCounterWith(wordEncoder{})

	// a single sentence far over the budget must still be split
	sentence := strings.Repeat("word ", 50) + "end."
	chunks := c.ChunkText(sentence, 10, 0)

	if len(chunks) < 5 {
		t.Fatalf("Expected oversized sentence to split into many chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if got := counter.Count(chunk.Text); got > 10 {
			t.Errorf("Chunk %d over budget: %d tokens", chunk.Ordinal, got)
		}
	}
}

func TestChunkPagesKeepsPagesTogether(t *testing.T) {
	c := testChunker()

	pages := []string{
		"page one with five words",
		"page two with five words",
		"page three with five words",
	}
	pieces := c.ChunkPages(pages, 100)

	if len(pieces) != 1 {
		t.Fatalf("Expected all pages merged into 1 chunk, got %d", len(pieces))
	}
	if !strings.Contains(pieces[0], "page one") || !strings.Contains(pieces[0], "page three") {
		t.Errorf("Merged chunk is missing page content: %q", pieces[0])
	}
}

func TestChunkPagesSplitsAtBudget(t *testing.T) {
	c := testChunker()

	pages := []string{
		"page one with five words",
		"page two with five words",
		"page three with five words",
	}
	pieces := c.ChunkPages(pages, 11)

	if len(pieces) != 2 {
		t.Fatalf("Expected 2 chunks, got %d: %v", len(pieces), pieces)
	}
}

func TestChunkPagesOneChunkPerPageWhenPairsExceed(t *testing.T) {
	c := testChunker()

	// each page fits alone but no two fit together
	page := strings.TrimSpace(strings.Repeat("tokens fill the page. ", 6))
	pieces := c.ChunkPages([]string{page, page, page}, 30)

	if len(pieces) != 3 {
		t.Fatalf("Expected one chunk per page, got %d", len(pieces))
	}
	for i, piece := range pieces {
		if piece != page {
			t.Errorf("Chunk %d is not a whole page: %q", i, piece)
		}
	}
}

func TestChunkPagesOversizedPage(t *testing.T) {
	c := testChunker()
	counter := NewTokenCounterWith(wordEncoder{})

	pages := []string{
		"small page.",
		strings.Repeat("giant page text. ", 20),
		"another small page.",
	}
	pieces := c.ChunkPages(pages, 10)

	if len(pieces) < 3 {
		t.Fatalf("Expected the oversized page to split, got %d chunks", len(pieces))
	}
	for i, piece := range pieces {
		if got := counter.Count(piece); got > 10 {
			t.Errorf("Chunk %d over budget: %d tokens", i, got)
		}
	}
}

func TestChunkPagesEmpty(t *testing.T) {
	c := testChunker()
	if pieces := c.ChunkPages(nil, 10); pieces != nil {
		t.Errorf("Expected nil for no pages, got %v", pieces)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two! Three? Four")
	if len(got) != 4 {
		t.Fatalf("Expected 4 sentences, got %d: %v", len(got), got)
	}
	if got[0] != "One" || got[3] != "Four" {
		t.Errorf("Unexpected sentence split: %v", got)
	}
}
