// Package retrieval implements the dynamic operation generator: a
// multi-step retrieval+LLM orchestration that turns a pre-embedded user
// query into a parse- and (when a schema is supplied) schema-valid GraphQL
// operation. Each step is its own method on Generator, mirroring a
// method-per-capability retrieval engine, composed in order by Generate.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"gqlrag/core/graph"
	"gqlrag/database"
	"gqlrag/helper"
	"gqlrag/llm"
	"gqlrag/model"
)

// rootFieldThresholdFloor is the floor the adaptive threshold relaxation
// loop stops retrying at once the working threshold drops below it.
const rootFieldThresholdFloor = 0.05

// Generator orchestrates the dynamic operation generation protocol,
// composing a VectorStore, an LLM provider, and a GeneratorConfig.
type Generator struct {
	Store  database.VectorStore
	LLM    llm.Provider
	Config model.GeneratorConfig
}

// NewGenerator wires the store, LLM provider, and config together.
func NewGenerator(store database.VectorStore, provider llm.Provider, config model.GeneratorConfig) *Generator {
	return &Generator{Store: store, LLM: provider, Config: config}
}

// Generate runs the ten-step protocol using the Generator's default config.
func (g *Generator) Generate(ctx context.Context, gctx model.GenerationContext, schema *ast.Schema) (*model.DynamicGeneratedOperation, error) {
	return g.GenerateWithConfig(ctx, gctx, schema, g.Config)
}

// GenerateWithConfig runs the protocol with a per-call config override.
func (g *Generator) GenerateWithConfig(ctx context.Context, gctx model.GenerationContext, schema *ast.Schema, cfg model.GeneratorConfig) (*model.DynamicGeneratedOperation, error) {
	candidates, err := g.retrieveRootFieldCandidates(ctx, gctx, cfg)
	if err != nil {
		return nil, err
	}

	opType, err := g.classifyOperationType(ctx, candidates, gctx.InputText)
	if err != nil {
		return nil, helper.NewError("classify operation type", err)
	}

	filtered, err := g.filterByOperationType(candidates, opType)
	if err != nil {
		return nil, err
	}

	selected, err := g.selectField(ctx, filtered)
	if err != nil {
		return nil, helper.NewError("select field", err)
	}

	discovered, err := g.discoverTypes(ctx, gctx, selected.Document, cfg.MaxTypeDepth)
	if err != nil {
		return nil, helper.NewError("discover types", err)
	}

	operation, variables, err := g.generateOperation(ctx, gctx.InputText, selected.Document, discovered)
	if err != nil {
		return nil, helper.NewError("generate operation", err)
	}

	finalOp, attempts, err := g.validateAndRepair(ctx, operation, schema, selected.Document, discovered, gctx.InputText, cfg.MaxValidationRetries)
	if err != nil {
		return nil, helper.NewError("validate and repair", err)
	}

	return g.assembleResult(finalOp, variables, opType, selected, filtered, discovered, attempts), nil
}

// --- retrieveRootFieldCandidates --------------------------------------------

// retrieveRootFieldCandidates searches for root operation field candidates,
// relaxing the similarity threshold by cfg.ThresholdStep whenever the
// filtered set comes back empty, until results appear or the threshold
// drops below rootFieldThresholdFloor.
func (g *Generator) retrieveRootFieldCandidates(ctx context.Context, gctx model.GenerationContext, cfg model.GeneratorConfig) ([]database.SearchResult, error) {
	opts := model.VectorSearchOptions{
		Limit: cfg.MaxDocuments,
		ColumnFilters: []model.Filter{
			{Field: "parentType", Op: model.FilterIn, Value: []interface{}{"Query", "Mutation", "Subscription"}},
		},
	}

	results, err := g.Store.Search(ctx, gctx.InputVector, opts)
	if err != nil {
		return nil, helper.NewError("retrieve root field candidates", err)
	}
	for i := range results {
		backfillRootOperationType(&results[i].Document.EmbeddingDocument)
	}

	threshold := cfg.MinSimilarityScore
	for {
		var filtered []database.SearchResult
		for _, r := range results {
			if r.Score >= threshold {
				filtered = append(filtered, r)
			}
		}

		if len(filtered) > 0 {
			return filtered, nil
		}

		if threshold < rootFieldThresholdFloor {
			return nil, &model.NoRelevantRootFieldsError{
				InputText:            gctx.InputText,
				FinalThreshold:       threshold,
				CandidatesConsidered: len(results),
			}
		}
		threshold -= cfg.ThresholdStep
	}
}

// backfillRootOperationType copies ParentType into RootOperationType for
// legacy records that predate the field.
func backfillRootOperationType(doc *model.EmbeddingDocument) {
	if doc.Metadata.RootOperationType == nil && doc.Metadata.ParentType != nil {
		doc.Metadata.RootOperationType = doc.Metadata.ParentType
	}
}

// --- classifyOperationType --------------------------------------------------

var (
	wordMutation     = regexp.MustCompile(`(?i)\bmutation\b`)
	wordSubscription = regexp.MustCompile(`(?i)\bsubscription\b`)
	wordQuery        = regexp.MustCompile(`(?i)\bquery\b`)
)

// classifyOperationType asks the LLM which root operation type best
// matches the original input text, given the retrieved candidates as
// context.
func (g *Generator) classifyOperationType(ctx context.Context, candidates []database.SearchResult, inputText string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You classify a natural-language request as one GraphQL root operation type. Reply with exactly one word: Query, Mutation, or Subscription."},
	}
	for _, c := range candidates {
		root := ""
		if c.Document.Metadata.RootOperationType != nil {
			root = *c.Document.Metadata.RootOperationType
		}
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: root + ":" + c.Document.Content})
	}
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Which operation type best matches this request: %q", inputText),
	})

	reply, err := g.LLM.Complete(ctx, messages, llm.CompletionOptions{Temperature: 0, MaxTokens: 8})
	if err != nil {
		return "", err
	}

	switch {
	case wordMutation.MatchString(reply):
		return "Mutation", nil
	case wordSubscription.MatchString(reply):
		return "Subscription", nil
	case wordQuery.MatchString(reply):
		return "Query", nil
	default:
		return "Query", nil
	}
}

// --- filterByOperationType ---------------------------------------------------

// filterByOperationType retains only candidates whose rootOperationType
// matches opType.
func (g *Generator) filterByOperationType(candidates []database.SearchResult, opType string) ([]database.SearchResult, error) {
	var out []database.SearchResult
	for _, c := range candidates {
		if c.Document.Metadata.RootOperationType != nil && *c.Document.Metadata.RootOperationType == opType {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, &model.NoMatchingOperationFieldsError{OperationType: opType}
	}
	return out, nil
}

// --- selectField ---------------------------------------------------------------

// selectField asks the LLM for the id of the most relevant field among the
// remaining candidates, resolving the reply by exact id match, then
// substring match either direction, falling back to the highest-scored
// candidate. candidates must be in descending score order.
func (g *Generator) selectField(ctx context.Context, candidates []database.SearchResult) (database.SearchResult, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You select the single GraphQL root field most relevant to a request. Reply with only the field's id, nothing else."},
	}
	for _, c := range candidates {
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: c.Document.ID + ":" + c.Document.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: "Which field id is most relevant?"})

	reply, err := g.LLM.Complete(ctx, messages, llm.CompletionOptions{Temperature: 0, MaxTokens: 32})
	if err != nil {
		return database.SearchResult{}, err
	}
	reply = strings.TrimSpace(reply)

	for _, c := range candidates {
		if c.Document.ID == reply {
			return c, nil
		}
	}
	if reply != "" {
		for _, c := range candidates {
			if strings.Contains(c.Document.ID, reply) || strings.Contains(reply, c.Document.ID) {
				return c, nil
			}
		}
	}
	return candidates[0], nil
}

// --- discoverTypes ----------------------------------------------------------

// discoverTypes expands the transitive type closure needed to render the
// selected field: its return type plus each non-scalar argument type,
// BFS-expanded to maxDepth hops via metadata-only vector lookups.
func (g *Generator) discoverTypes(ctx context.Context, gctx model.GenerationContext, selected model.EmbeddingDocument, maxDepth int) ([]graph.DiscoveredType, error) {
	var startTypes []string
	if selected.Metadata.FieldType != nil {
		startTypes = append(startTypes, *selected.Metadata.FieldType)
	}
	for _, arg := range selected.Metadata.Arguments {
		startTypes = append(startTypes, arg.Type)
	}

	discoverer := &vectorTypeDiscoverer{store: g.Store, dims: len(gctx.InputVector)}
	return graph.DiscoverTypes(ctx, discoverer, startTypes, maxDepth)
}

// vectorTypeDiscoverer implements graph.TypeDiscoverer over a VectorStore
// using near-zero-vector metadata-only lookups, merging chunked type
// documents back into a single view on discovery.
type vectorTypeDiscoverer struct {
	store database.VectorStore
	dims  int
}

func (d *vectorTypeDiscoverer) zeroVector() []float32 {
	dims := d.dims
	if dims <= 0 {
		dims = 1
	}
	return make([]float32, dims)
}

// ResolveType looks up a type's container document by name. When the
// result is one chunk of a multi-chunk type, it re-queries with a limit
// covering every chunk and merges them: sorted by chunkIndex, the first
// chunk's header, each chunk's field body concatenated, closed with a
// single brace, with chunk metadata cleared on the merged view.
func (d *vectorTypeDiscoverer) ResolveType(ctx context.Context, name string) (*model.EmbeddingDocument, error) {
	opts := model.VectorSearchOptions{
		Limit: 8,
		ColumnFilters: []model.Filter{
			{Field: "type", Op: model.FilterIn, Value: []interface{}{"object", "input", "interface", "union", "enum", "scalar"}},
			{Field: "name", Op: model.FilterEq, Value: name},
		},
	}

	results, err := d.store.Search(ctx, d.zeroVector(), opts)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	total := 1
	if results[0].Document.Metadata.TotalChunks != nil {
		total = *results[0].Document.Metadata.TotalChunks
	}
	if total <= 1 {
		doc := results[0].Document.EmbeddingDocument
		return &doc, nil
	}

	seen := map[int]bool{}
	for _, r := range results {
		if r.Document.Metadata.ChunkIndex != nil {
			seen[*r.Document.Metadata.ChunkIndex] = true
		}
	}
	if len(seen) < total {
		opts.Limit = total
		results, err = d.store.Search(ctx, d.zeroVector(), opts)
		if err != nil {
			return nil, err
		}
	}

	merged := mergeChunks(results)
	return merged, nil
}

// mergeChunks reconstructs the original type document from its chunks,
// sorted by chunkIndex, reusing the first chunk's header and concatenating
// each chunk's field body, closed with a single brace.
func mergeChunks(results []database.SearchResult) *model.EmbeddingDocument {
	docs := make([]model.EmbeddingDocument, len(results))
	for i, r := range results {
		docs[i] = r.Document.EmbeddingDocument
	}
	sort.Slice(docs, func(i, j int) bool {
		return idxOf(docs[i].Metadata.ChunkIndex) < idxOf(docs[j].Metadata.ChunkIndex)
	})

	header, _, ok := splitAtBrace(docs[0].Content)
	if !ok {
		header = docs[0].Content
	}

	var body strings.Builder
	for _, c := range docs {
		_, b, ok := splitAtBrace(c.Content)
		if ok {
			body.WriteString(b)
		}
	}

	merged := docs[0]
	merged.Content = header + body.String() + "}"
	merged.Metadata.ChunkIndex = nil
	merged.Metadata.TotalChunks = nil
	merged = merged.WithComputedID()
	return &merged
}

func idxOf(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// splitAtBrace splits content at the first "{" into header (inclusive) and
// the body with any trailing "}" removed.
func splitAtBrace(content string) (header, body string, ok bool) {
	idx := strings.IndexByte(content, '{')
	if idx < 0 {
		return "", "", false
	}
	header = content[:idx+1]
	rest := strings.TrimRight(content[idx+1:], " \t\n\r")
	rest = strings.TrimSuffix(rest, "}")
	return header, rest, true
}

// FieldsOf fetches a type's field documents.
func (d *vectorTypeDiscoverer) FieldsOf(ctx context.Context, parentType string) ([]model.EmbeddingDocument, error) {
	opts := model.VectorSearchOptions{
		Limit: 200,
		ColumnFilters: []model.Filter{
			{Field: "type", Op: model.FilterEq, Value: "field"},
			{Field: "parentType", Op: model.FilterEq, Value: parentType},
		},
	}
	results, err := d.store.Search(ctx, d.zeroVector(), opts)
	if err != nil {
		return nil, err
	}
	docs := make([]model.EmbeddingDocument, len(results))
	for i, r := range results {
		docs[i] = r.Document.EmbeddingDocument
	}
	return docs, nil
}

// --- generateOperation --------------------------------------------------------

var (
	graphqlFence = regexp.MustCompile("(?s)```(?:graphql|gql)?\\s*\\n?(.*?)```")
	jsonFence    = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)```")
)

// generateOperation prompts the LLM to emit a fenced GraphQL operation and
// a fenced JSON variables block, given the root field plus every discovered
// type as context.
func (g *Generator) generateOperation(ctx context.Context, inputText string, rootField model.EmbeddingDocument, discovered []graph.DiscoveredType) (string, map[string]interface{}, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You write a single GraphQL operation that satisfies the request, using only the fields and types shown. Reply with exactly one ```graphql fenced block containing the operation, followed by one ```json fenced block with example variables."},
		{Role: llm.RoleAssistant, Content: rootField.Content},
	}
	for _, d := range discovered {
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: d.Document.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: inputText})

	reply, err := g.LLM.Complete(ctx, messages, llm.CompletionOptions{Temperature: 0.2, MaxTokens: 1024})
	if err != nil {
		return "", nil, err
	}

	operation := extractOperation(reply)
	variables := extractVariables(reply)
	return operation, variables, nil
}

// extractOperation pulls the contents of a fenced graphql block out of
// reply, falling back to the entire response when no fenced block is
// present.
func extractOperation(reply string) string {
	if m := graphqlFence.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}

// extractVariables parses a fenced json block as example variables,
// returning an empty map on any parse failure.
func extractVariables(reply string) map[string]interface{} {
	m := jsonFence.FindStringSubmatch(reply)
	if m == nil {
		return map[string]interface{}{}
	}
	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(m[1]), &vars); err != nil {
		return map[string]interface{}{}
	}
	if vars == nil {
		return map[string]interface{}{}
	}
	return vars
}

// --- validateAndRepair ---------------------------------------------------------

// validateAndRepair parses (and, when schema is non-nil, validates) the
// operation, re-prompting the LLM with the failing errors until it passes
// or maxRetries validation attempts have been made. The first attempt is
// the generated operation itself, so at most maxRetries-1 repair prompts
// are sent.
func (g *Generator) validateAndRepair(ctx context.Context, operation string, schema *ast.Schema, rootField model.EmbeddingDocument, discovered []graph.DiscoveredType, inputText string, maxRetries int) (string, int, error) {
	attempts := 1
	current := operation

	for {
		errs := validateOperation(current, schema)
		if len(errs) == 0 {
			return current, attempts, nil
		}
		if attempts >= maxRetries {
			return current, attempts, nil
		}

		repaired, err := g.repairOperation(ctx, current, errs, rootField, discovered, inputText)
		if err != nil {
			return current, attempts, helper.NewError(fmt.Sprintf("repair operation (attempt %d)", attempts), err)
		}
		current = repaired
		attempts++
	}
}

// validateOperation parses operation and, if schema is supplied, also
// validates it, returning every error message collected.
func validateOperation(operation string, schema *ast.Schema) []string {
	src := &ast.Source{Name: "generated.graphql", Input: operation}
	doc, err := parser.ParseQuery(src)
	if err != nil {
		return []string{err.Error()}
	}
	if schema == nil {
		return nil
	}

	listErr := validator.Validate(schema, doc)
	if len(listErr) == 0 {
		return nil
	}
	out := make([]string, len(listErr))
	for i, e := range listErr {
		out[i] = e.Message
	}
	return out
}

// repairOperation builds the repair prompt: a system instruction, the
// in-context documents restated as schema excerpts, and a user message
// with the broken operation and its error list.
func (g *Generator) repairOperation(ctx context.Context, broken string, errs []string, rootField model.EmbeddingDocument, discovered []graph.DiscoveredType, inputText string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "The previous GraphQL operation failed to parse or validate. Using only the schema excerpts shown, produce a corrected operation. Reply with exactly one ```graphql fenced block."},
		{Role: llm.RoleAssistant, Content: rootField.Content},
	}
	for _, d := range discovered {
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: d.Document.Content})
	}

	var b strings.Builder
	b.WriteString("```graphql\n")
	b.WriteString(broken)
	b.WriteString("\n```\n\nErrors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e)
		b.WriteString("\n")
	}
	b.WriteString("\nOriginal request: ")
	b.WriteString(inputText)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: b.String()})

	reply, err := g.LLM.Complete(ctx, messages, llm.CompletionOptions{Temperature: 0.2, MaxTokens: 1024})
	if err != nil {
		return "", err
	}
	return extractOperation(reply), nil
}

// --- assembleResult ------------------------------------------------------------

// assembleResult attaches every retrieval candidate and discovered type as
// provenance, with discovered types carrying the sentinel score
// model.DiscoveredTypeScore.
func (g *Generator) assembleResult(operation string, variables map[string]interface{}, opType string, selected database.SearchResult, candidates []database.SearchResult, discovered []graph.DiscoveredType, attempts int) *model.DynamicGeneratedOperation {
	var provenance []model.ProvenanceDocument
	for _, c := range candidates {
		provenance = append(provenance, model.ProvenanceDocument{Document: c.Document.EmbeddingDocument, Score: c.Score})
	}
	for _, d := range discovered {
		provenance = append(provenance, model.ProvenanceDocument{Document: d.Document, Score: model.DiscoveredTypeScore})
	}

	return &model.DynamicGeneratedOperation{
		Operation:          operation,
		Variables:          variables,
		OperationType:      strings.ToLower(opType),
		RootField:          selected.Document.Name,
		RelevantDocuments:  provenance,
		ValidationAttempts: attempts,
	}
}
