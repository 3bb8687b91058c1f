// Package loader reads limit definition documents and keeps a running
// engine's definition set in sync with the file on disk.
package loader

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"strato-hq/tollgate/pkg/limits"
)

// ClassLimit is the discriminator selecting the class-based limit type.
// Records with another discriminator are skipped; the document format leaves
// room for other limit types without breaking older tollgate versions.
const ClassLimit = "class_limit"

// Document is the on-disk shape of a limit definitions file.
type Document struct {
	Limits []Record `yaml:"limits"`
}

// Record is one entry of the document: a discriminator plus the definition
// attributes.
type Record struct {
	Class             string `yaml:"class"`
	limits.Definition `yaml:",inline"`
}

// Load parses the definitions file at path and returns the valid
// definitions in document order.
//
// Load-time problems are per-definition recoverable: a record with an
// unknown discriminator, bad unit, non-positive value or missing attribute
// is logged and skipped, and the rest of the set still loads. Only an
// unreadable or unparsable document is an error.
func Load(path string, logger *slog.Logger) ([]*limits.Definition, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions file: %w", err)
	}

	return Parse(data, logger)
}

// Parse parses a definitions document from raw bytes. See Load.
func Parse(data []byte, logger *slog.Logger) ([]*limits.Definition, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse definitions document: %w", err)
	}

	defs := make([]*limits.Definition, 0, len(doc.Limits))
	for i := range doc.Limits {
		rec := &doc.Limits[i]

		if rec.Class != ClassLimit {
			logger.Warn("skipping definition with unknown class",
				"index", i, "class", rec.Class, "uuid", rec.UUID)
			continue
		}

		def := rec.Definition
		if err := def.Validate(); err != nil {
			logger.Warn("skipping malformed definition", "index", i, "error", err)
			continue
		}
		defs = append(defs, &def)
	}

	logger.Info("loaded limit definitions", "total", len(doc.Limits), "valid", len(defs))
	return defs, nil
}
