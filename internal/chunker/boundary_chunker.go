package chunker

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"pdfrag/internal/domain"
)

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 300
)

// separatorTiers lists break candidates from most to least preferred.
// Within a tier the latest occurrence in the window wins.
var separatorTiers = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" "},
}

// BoundaryChunker splits page text into overlapping windows of at most
// chunkSize runes, cutting at paragraph or sentence boundaries when one is
// available in the second half of the window and hard-cutting otherwise.
// Every chunk is a contiguous slice of its page, so consecutive chunks on a
// page share exactly the overlap and nothing is lost between them.
type BoundaryChunker struct {
	chunkSize int
	overlap   int
}

func NewBoundaryChunker(chunkSize, overlap int) *BoundaryChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &BoundaryChunker{chunkSize: chunkSize, overlap: overlap}
}

func (c *BoundaryChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, page := range document.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		runes := []rune(page.Text)
		for _, w := range c.windows(runes) {
			chunks = append(chunks, domain.Chunk{
				ID:          uuid.NewString(),
				DocumentID:  document.ID,
				Text:        string(runes[w.start:w.end]),
				SourceIndex: len(chunks),
				Page:        page.Number,
				Offset:      w.start,
				Metadata: map[string]string{
					"source": document.Path,
					"page":   strconv.Itoa(page.Number),
				},
			})
		}
	}
	return chunks, nil
}

type window struct{ start, end int }

func (c *BoundaryChunker) windows(text []rune) []window {
	var out []window
	start := 0
	for start < len(text) {
		limit := start + c.chunkSize
		if limit >= len(text) {
			out = append(out, window{start, len(text)})
			break
		}
		end := c.breakPoint(text, start, limit)
		out = append(out, window{start, end})
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// breakPoint returns the position right after the latest preferred separator
// in the window, or limit when none qualifies. The floor keeps chunks from
// collapsing and guarantees the next window starts after this one.
func (c *BoundaryChunker) breakPoint(text []rune, start, limit int) int {
	floor := start + c.chunkSize/2
	if least := start + c.overlap + 1; floor < least {
		floor = least
	}
	for _, tier := range separatorTiers {
		for p := limit; p >= floor; p-- {
			if endsWithAny(text[start:p], tier) {
				return p
			}
		}
	}
	return limit
}

func endsWithAny(text []rune, seps []string) bool {
	for _, sep := range seps {
		sr := []rune(sep)
		if len(sr) > len(text) {
			continue
		}
		tail := text[len(text)-len(sr):]
		match := true
		for i := range sr {
			if tail[i] != sr[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
