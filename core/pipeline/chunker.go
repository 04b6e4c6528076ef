package pipeline

import (
	"strings"
	"unicode"

	"gqlrag/model"
)

var splittableKinds = map[model.DocumentType]bool{
	model.DocumentTypeObject:    true,
	model.DocumentTypeInterface: true,
	model.DocumentTypeInput:     true,
	model.DocumentTypeEnum:      true,
}

// Chunker splits oversized EmbeddingDocuments at field (or enum-value)
// boundaries.
type Chunker struct{}

// NewChunker creates a chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Chunk splits doc if its content exceeds maxContentLength and its kind is
// splittable. Non-splittable kinds, and documents already within budget,
// pass through unchanged.
func (c *Chunker) Chunk(doc model.EmbeddingDocument, maxContentLength int) ([]model.EmbeddingDocument, error) {
	if len(doc.Content) <= maxContentLength {
		return []model.EmbeddingDocument{doc}, nil
	}
	if !splittableKinds[doc.Type] {
		return []model.EmbeddingDocument{doc}, nil
	}

	header, body, ok := splitHeaderBody(doc.Content)
	if !ok {
		return []model.EmbeddingDocument{doc}, nil
	}

	var units []string
	if doc.Type == model.DocumentTypeEnum {
		units = strings.Fields(body)
	} else {
		units = splitFields(body)
	}
	if len(units) == 0 {
		return []model.EmbeddingDocument{doc}, nil
	}

	groups := packGreedy(header, units, maxContentLength)
	if len(groups) <= 1 {
		return []model.EmbeddingDocument{doc}, nil
	}

	chunks := make([]model.EmbeddingDocument, 0, len(groups))
	for i, group := range groups {
		content := header + " " + strings.Join(group, " ") + " }"
		idx := i
		total := len(groups)

		meta := doc.Metadata
		meta.ChunkIndex = &idx
		meta.TotalChunks = &total

		chunks = append(chunks, model.EmbeddingDocument{
			Type:        doc.Type,
			Name:        doc.Name,
			Description: doc.Description,
			Content:     content,
			Metadata:    meta,
		}.WithComputedID())
	}
	return chunks, nil
}

// splitHeaderBody splits content at the first "{" into a header (including
// the brace) and the body with its trailing "}" removed.
func splitHeaderBody(content string) (header, body string, ok bool) {
	idx := strings.IndexByte(content, '{')
	if idx < 0 {
		return "", "", false
	}
	header = strings.TrimSpace(content[:idx+1])
	rest := content[idx+1:]
	rest = strings.TrimRight(rest, " \t\n\r")
	rest = strings.TrimSuffix(rest, "}")
	return header, rest, true
}

// splitFields walks body character by character tracking bracket depth. A
// field boundary is recognized at depth zero once the accumulated text has
// passed a ":" and its following type token, and the next non-space
// character begins a new field identifier, a description, or a directive.
func splitFields(body string) []string {
	var fields []string
	var buf strings.Builder
	depth := 0
	colonSeen := false
	pastColonToken := false

	runes := []rune(body)
	n := len(runes)

	flush := func() {
		s := strings.TrimSpace(buf.String())
		if s != "" {
			fields = append(fields, s)
		}
		buf.Reset()
		colonSeen = false
		pastColonToken = false
	}

	i := 0
	for i < n {
		r := runes[i]
		buf.WriteRune(r)

		switch r {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		}

		if depth == 0 {
			switch {
			case r == ':':
				colonSeen = true
				pastColonToken = false
			case colonSeen && !pastColonToken && !unicode.IsSpace(r):
				pastColonToken = true
			case colonSeen && pastColonToken && unicode.IsSpace(r):
				j := i + 1
				for j < n && unicode.IsSpace(runes[j]) {
					j++
				}
				if j >= n {
					flush()
					i = n
					continue
				}
				if isFieldStart(runes[j]) {
					flush()
					i = j
					continue
				}
			}
		}
		i++
	}
	flush()

	return fields
}

func isFieldStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '"' || r == '@'
}

// packGreedy groups units into chunks so that header + joined units + the
// closing brace stays within maxContentLength, never splitting a single
// unit across chunks. A unit that alone exceeds the budget occupies its
// own chunk.
func packGreedy(header string, units []string, maxContentLength int) [][]string {
	reserved := len(header) + len(" ") + len(" }")

	var groups [][]string
	var current []string
	currentLen := reserved

	for _, u := range units {
		addLen := len(u)
		if len(current) > 0 {
			addLen++ // join separator
		}
		if len(current) > 0 && currentLen+addLen > maxContentLength {
			groups = append(groups, current)
			current = nil
			currentLen = reserved
			addLen = len(u)
		}
		current = append(current, u)
		currentLen += addLen
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
