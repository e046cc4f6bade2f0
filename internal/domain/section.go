package domain

import "fmt"

// Section is a coarse positional band of the document.
type Section string

const (
	SectionBeginning Section = "beginning"
	SectionMiddle    Section = "middle"
	SectionMiddle1   Section = "middle-1"
	SectionMiddle2   Section = "middle-2"
	SectionEnd       Section = "end"
)

// MetadataSection is the chunk metadata key holding the section label.
const MetadataSection = "section"

// SectionLabels returns the ordered label enumeration for a partition count.
// Only 3 and 4 bands are supported.
func SectionLabels(partitions int) ([]Section, error) {
	switch partitions {
	case 3:
		return []Section{SectionBeginning, SectionMiddle, SectionEnd}, nil
	case 4:
		return []Section{SectionBeginning, SectionMiddle1, SectionMiddle2, SectionEnd}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidPartitions, partitions)
	}
}

// In reports whether s is one of labels.
func (s Section) In(labels []Section) bool {
	for _, l := range labels {
		if l == s {
			return true
		}
	}
	return false
}

// SectionNames converts labels to plain strings.
func SectionNames(labels []Section) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}
