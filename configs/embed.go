// Package configs holds the configuration template embedded into the
// binary. `hvsearch config init` writes it to the user config path, or to
// .hvsearch.yaml with --project.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults
//  2. User config (~/.config/hvsearch/config.yaml)
//  3. Project config (.hvsearch.yaml)
//  4. Environment variables (HVSEARCH_*)
package configs

import _ "embed"

// ConfigTemplate is the commented example configuration.
//
//go:embed config.example.yaml
var ConfigTemplate string
