// Package graph implements the BFS type-closure traversal used by the
// dynamic operation generator's type discovery step, adapted from a
// chunk/entity BFS traversal into a walk over GraphQL type names instead
// of stored chunk ids.
package graph

import (
	"context"
	"strings"

	"gqlrag/model"
)

// TypeDiscoverer resolves a single type's container document and its field
// documents via whatever lookup the caller's vector store implements. The
// generator supplies an implementation backed by metadata-only vector
// searches; tests can supply a map-backed fake.
type TypeDiscoverer interface {
	ResolveType(ctx context.Context, name string) (*model.EmbeddingDocument, error)
	FieldsOf(ctx context.Context, parentType string) ([]model.EmbeddingDocument, error)
}

// DiscoveredType pairs a type's container document with its BFS distance
// from the starting set, preserving first-encounter (BFS) order rather
// than similarity order.
type DiscoveredType struct {
	Document model.EmbeddingDocument
	Distance int
}

var typeWrapperReplacer = strings.NewReplacer("!", "", "[", "", "]", "")

// BaseTypeName strips GraphQL's non-null (!) and list ([...]) wrappers to
// recover the underlying named type, e.g. "[User!]!" -> "User".
func BaseTypeName(graphQLType string) string {
	return strings.TrimSpace(typeWrapperReplacer.Replace(graphQLType))
}

// DiscoverTypes performs a breadth-first expansion of the transitive type
// closure reachable from startTypes, skipping built-in scalars and bounded
// to maxDepth hops. Each type is looked up once; its fields' return types,
// its possibleTypes (for unions), and its interfaces are all enqueued for
// the next hop.
func DiscoverTypes(ctx context.Context, d TypeDiscoverer, startTypes []string, maxDepth int) ([]DiscoveredType, error) {
	visited := make(map[string]bool)
	var queue []struct {
		name     string
		distance int
	}

	for _, t := range startTypes {
		name := BaseTypeName(t)
		if name == "" || model.BuiltinScalars[name] || visited[name] {
			continue
		}
		visited[name] = true
		queue = append(queue, struct {
			name     string
			distance int
		}{name, 0})
	}

	var results []DiscoveredType

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		doc, err := d.ResolveType(ctx, current.name)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue // not a stored type (e.g. a custom scalar with no container doc)
		}

		results = append(results, DiscoveredType{Document: *doc, Distance: current.distance})

		if current.distance >= maxDepth {
			continue
		}

		var nextNames []string
		for _, p := range doc.Metadata.PossibleTypes {
			nextNames = append(nextNames, BaseTypeName(p))
		}
		for _, iface := range doc.Metadata.Interfaces {
			nextNames = append(nextNames, BaseTypeName(iface))
		}

		fields, err := d.FieldsOf(ctx, current.name)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			if f.Metadata.FieldType == nil {
				continue
			}
			nextNames = append(nextNames, BaseTypeName(*f.Metadata.FieldType))
		}

		for _, name := range nextNames {
			if name == "" || model.BuiltinScalars[name] || visited[name] {
				continue
			}
			visited[name] = true
			queue = append(queue, struct {
				name     string
				distance int
			}{name, current.distance + 1})
		}
	}

	return results, nil
}
