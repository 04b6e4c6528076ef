package model

import "time"

// SchemaSDLSentinelID is the fixed id the SDL sidecar is stored at,
// alongside the document set in the same namespace.
const SchemaSDLSentinelID = "__schema_sdl__"

// SchemaSDLRecord is the full SDL text used to produce the currently stored
// documents in a namespace. It is written on every successful embed (full
// or incremental) and read back as the prior state for the next diff.
type SchemaSDLRecord struct {
	SDL       string    `json:"sdl"`
	UpdatedAt time.Time `json:"updated_at"`
}
