// Package section assigns coarse positional labels to an ordered chunk sequence.
package section

import "pdfrag/internal/domain"

// Tagger splits N chunks into P contiguous bands of N/P chunks each; the last
// band absorbs the remainder. When N < P every chunk falls in the last band.
type Tagger struct {
	labels []domain.Section
}

// NewTagger returns a tagger for 3 or 4 partitions.
func NewTagger(partitions int) (*Tagger, error) {
	labels, err := domain.SectionLabels(partitions)
	if err != nil {
		return nil, err
	}
	return &Tagger{labels: labels}, nil
}

// Labels returns the ordered label enumeration used by the tagger.
func (t *Tagger) Labels() []domain.Section {
	out := make([]domain.Section, len(t.labels))
	copy(out, t.labels)
	return out
}

// LabelFor returns the label of position i in a sequence of n chunks.
func (t *Tagger) LabelFor(i, n int) domain.Section {
	last := len(t.labels) - 1
	band := n / len(t.labels)
	if band == 0 {
		return t.labels[last]
	}
	idx := i / band
	if idx > last {
		idx = last
	}
	return t.labels[idx]
}

// Tag writes the section label into each chunk's metadata in place and
// returns the same slice. Re-tagging yields identical labels.
func (t *Tagger) Tag(chunks []domain.Chunk) []domain.Chunk {
	n := len(chunks)
	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]string, 1)
		}
		chunks[i].Metadata[domain.MetadataSection] = string(t.LabelFor(i, n))
	}
	return chunks
}
