// Package schemas embeds the JSON Schemas for bagcheck's YAML files.
package schemas

import _ "embed"

// ConfigSchemaJSON is the schema for .bagcheck.yaml.
//
//go:embed config.schema.json
var ConfigSchemaJSON string
