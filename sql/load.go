package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed documents.sql
var documentsSQL string

//go:embed typeedges.sql
var typeEdgesSQL string

// DocumentsFunctions lists every function documents.sql must define.
var DocumentsFunctions = []string{
	"init_documents",
	"upsert_document",
	"delete_documents",
	"clear_documents",
	"search_documents",
	"upsert_schema_sdl",
}

// TypeEdgesFunctions lists every function typeedges.sql must define.
var TypeEdgesFunctions = []string{
	"init_type_edges",
	"insert_type_edge",
	"select_type_edges_from",
	"clear_type_edges",
}

// LoadDocumentsSQL loads the document-storage functions, skipping the
// reload when they already exist unless force is set.
func LoadDocumentsSQL(db *sql.DB, force bool) error {
	return load(db, documentsSQL, DocumentsFunctions, force, "documents")
}

// LoadTypeEdgesSQL loads the schema-dependency-graph functions.
func LoadTypeEdgesSQL(db *sql.DB, force bool) error {
	return load(db, typeEdgesSQL, TypeEdgesFunctions, force, "type edges")
}

func load(db *sql.DB, source string, functions []string, force bool, label string) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", label, err)
		}
		if exist {
			return nil
		}
	}

	if _, err := db.Exec(source); err != nil {
		return fmt.Errorf("error executing %s SQL: %w", label, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", label)
	}

	log.Printf("SQL %s functions loaded successfully", label)
	return nil
}

// checkFunctions verifies that all required functions exist in the database.
func checkFunctions(db *sql.DB, functions []string) (bool, error) {
	var allExist bool
	for _, f := range functions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
