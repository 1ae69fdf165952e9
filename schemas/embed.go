// Package schemas embeds the JSON Schemas for pipeline inputs and records.
package schemas

import "embed"

// File names of the embedded schemas.
const (
	Inspirations = "inspirations.schema.json"
	RunRecord    = "run_record.schema.json"
	Config       = "config.schema.json"
)

// FS holds every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS
