// Package ruleconfig resolves per-rule enablement, thresholds and confidence
// breakpoints from built-in defaults and a user override document.
package ruleconfig

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cloud-waste/internal/errors"
)

// Overrides is a parsed rule configuration document:
// resource type -> scenario id -> field -> raw value.
//
//	disk:
//	  disk_unattached:
//	    enabled: true
//	    min_age_days: 14
//	    confidence: {medium: 7, high: 30, critical: 90}
type Overrides map[string]map[string]map[string]any

// Reserved field names inside a scenario block
const (
	FieldEnabled    = "enabled"
	FieldConfidence = "confidence"
)

// ParseYAML decodes a YAML (or JSON) override document
func ParseYAML(data []byte) (Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, errors.Wrap(errors.TypeConfig, "parse rule config", err)
	}
	if o == nil {
		o = Overrides{}
	}
	return o, nil
}

// Load reads an override document, choosing the syntax by file extension
func Load(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeConfig, err, "read rule config %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return ParseHCL(data, path)
	default:
		return ParseYAML(data)
	}
}
