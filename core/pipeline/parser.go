// Package pipeline implements the schema ingestion pipeline: parsing SDL
// into EmbeddingDocuments (parser.go), splitting oversized documents at
// structural boundaries (chunker.go), and mediating between parser output
// and a vector store (embedder.go).
package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"gqlrag/model"
)

// SchemaParser turns a GraphQL SDL document into an ordered list of
// EmbeddingDocuments.
type SchemaParser struct{}

// NewSchemaParser creates a schema parser.
func NewSchemaParser() *SchemaParser {
	return &SchemaParser{}
}

// Parse blanks out comments in sdl (keeping byte offsets intact), parses it
// with source-location tracking, and walks the top-level definitions in
// declaration order. Insignificant whitespace is collapsed per document
// when its content is built. A parse error is fatal and is surfaced
// unchanged.
func (p *SchemaParser) Parse(sdl string) ([]model.EmbeddingDocument, error) {
	stripped := stripComments(sdl)

	src := &ast.Source{Name: "schema.graphql", Input: stripped}
	doc, err := parser.ParseSchema(src)
	if err != nil {
		return nil, err
	}

	var docs []model.EmbeddingDocument
	for _, def := range doc.Definitions {
		docs = append(docs, p.walkDefinition(def, stripped)...)
	}

	return docs, nil
}

func (p *SchemaParser) walkDefinition(def *ast.Definition, src string) []model.EmbeddingDocument {
	switch def.Kind {
	case ast.Object:
		if model.RootOperationTypes[def.Name] {
			return p.fieldDocuments(def, src)
		}
		container := p.containerDocument(def, model.DocumentTypeObject, src)
		return append([]model.EmbeddingDocument{container}, p.fieldDocuments(def, src)...)
	case ast.Interface:
		container := p.containerDocument(def, model.DocumentTypeInterface, src)
		return append([]model.EmbeddingDocument{container}, p.fieldDocuments(def, src)...)
	case ast.InputObject:
		container := p.containerDocument(def, model.DocumentTypeInput, src)
		return append([]model.EmbeddingDocument{container}, p.fieldDocuments(def, src)...)
	case ast.Enum:
		return []model.EmbeddingDocument{p.containerDocument(def, model.DocumentTypeEnum, src)}
	case ast.Union:
		return []model.EmbeddingDocument{p.containerDocument(def, model.DocumentTypeUnion, src)}
	case ast.Scalar:
		return []model.EmbeddingDocument{p.containerDocument(def, model.DocumentTypeScalar, src)}
	default:
		return nil
	}
}

func (p *SchemaParser) containerDocument(def *ast.Definition, docType model.DocumentType, src string) model.EmbeddingDocument {
	content := collapseWhitespace(definitionSpan(def, src))
	kind := string(docType)

	meta := model.DocumentMetadata{Kind: &kind}
	if len(def.Interfaces) > 0 {
		meta.Interfaces = append([]string{}, def.Interfaces...)
	}
	if len(def.Types) > 0 {
		meta.PossibleTypes = append([]string{}, def.Types...)
	}
	for _, ev := range def.EnumValues {
		meta.EnumValues = append(meta.EnumValues, ev.Name)
	}
	for _, f := range def.Fields {
		meta.Fields = append(meta.Fields, f.Name)
	}

	return model.EmbeddingDocument{
		Type:        docType,
		Name:        def.Name,
		Description: def.Description,
		Content:     content,
		Metadata:    meta,
	}.WithComputedID()
}

func (p *SchemaParser) fieldDocuments(def *ast.Definition, src string) []model.EmbeddingDocument {
	isRoot := model.RootOperationTypes[def.Name]

	docs := make([]model.EmbeddingDocument, 0, len(def.Fields))
	for _, f := range def.Fields {
		content := p.fieldContent(def.Name, f, src)

		fieldType := f.Type.String()
		parentType := def.Name
		meta := model.DocumentMetadata{
			ParentType: &parentType,
			FieldType:  &fieldType,
		}
		for _, arg := range f.Arguments {
			meta.Arguments = append(meta.Arguments, model.ArgumentMetadata{
				Name:        arg.Name,
				Type:        arg.Type.String(),
				Description: arg.Description,
			})
		}

		docType := model.DocumentTypeField
		if isRoot {
			meta.IsRootOperationField = true
			meta.RootOperationType = &parentType
			switch def.Name {
			case "Query":
				docType = model.DocumentTypeQuery
			case "Mutation":
				docType = model.DocumentTypeMutation
			case "Subscription":
				docType = model.DocumentTypeSubscription
			}
		}

		docs = append(docs, model.EmbeddingDocument{
			Type:        docType,
			Name:        f.Name,
			Description: f.Description,
			Content:     content,
			Metadata:    meta,
		}.WithComputedID())
	}
	return docs
}

// fieldContent reconstructs a field document's content: the source span of
// the field with "ParentType." spliced in immediately before the field
// name. Falls back to a bare "ParentType.fieldName" when source-location
// information is unavailable.
func (p *SchemaParser) fieldContent(parentType string, f *ast.FieldDefinition, src string) string {
	span := fieldSpan(f, src)
	if span == "" {
		return parentType + "." + f.Name
	}

	idx := strings.Index(span, f.Name)
	if idx < 0 {
		return parentType + "." + f.Name
	}

	span = collapseWhitespace(span[idx:])
	return parentType + "." + span
}

func definitionSpan(def *ast.Definition, src string) string {
	if def.Position == nil {
		return def.Name
	}
	return safeSlice(src, def.Position.Start, def.Position.End)
}

func fieldSpan(f *ast.FieldDefinition, src string) string {
	if f.Position == nil {
		return ""
	}
	return safeSlice(src, f.Position.Start, f.Position.End)
}

func safeSlice(s string, start, end int) string {
	if start < 0 || end > len(s) || start >= end {
		return ""
	}
	return s[start:end]
}

var commentPattern = regexp.MustCompile(`#[^\n]*`)

// stripComments replaces GraphQL SDL comments with equal-length blank
// runs so that byte offsets into the stripped text line up with the
// offsets the parser reports, while removing comment text from any
// extracted span.
func stripComments(sdl string) string {
	return commentPattern.ReplaceAllStringFunc(sdl, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// collapseWhitespace produces the canonical, whitespace-stripped content
// string: a single document's content has no insignificant whitespace
// runs, only single spaces between tokens.
func collapseWhitespace(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseError wraps the underlying gqlparser error with the step name:
// parse errors are fatal and surfaced unchanged in cause, but tagged with
// where they occurred.
func ParseError(err error) error {
	return fmt.Errorf("parse schema: %w", err)
}
