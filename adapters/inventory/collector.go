// Package inventory provides a file-backed resource collector.
// Inventory documents are YAML or JSON lists of resource snapshots.
package inventory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cloud-waste/core/types"
	"cloud-waste/internal/errors"
	"cloud-waste/internal/logging"
)

// Document is the on-disk inventory format
type Document struct {
	Resources []Record `json:"resources" yaml:"resources"`
}

// Record is one raw resource snapshot
type Record struct {
	ID            string            `json:"id" yaml:"id"`
	Type          string            `json:"type" yaml:"type"`
	Name          string            `json:"name" yaml:"name"`
	Location      string            `json:"location" yaml:"location"`
	ResourceGroup string            `json:"resource_group" yaml:"resource_group"`
	CreatedAt     string            `json:"created_at" yaml:"created_at"`
	Tags          map[string]string `json:"tags" yaml:"tags"`
	Attributes    map[string]any    `json:"attributes" yaml:"attributes"`
}

// Rejection records a snapshot that failed schema validation
type Rejection struct {
	Source     string `json:"source"`
	Index      int    `json:"index"`
	ResourceID string `json:"resource_id,omitempty"`
	Reason     string `json:"reason"`
}

// Collector loads resources from inventory files. It is restartable: every
// Collect call rereads its files.
type Collector struct {
	paths  []string
	logger *zap.Logger

	rejected []Rejection
}

// NewCollector creates a collector over one or more files
func NewCollector(logger *zap.Logger, paths ...string) *Collector {
	return &Collector{paths: paths, logger: logging.OrDefault(logger)}
}

// Collect reads every file. Invalid records are logged and reported through
// Rejected; unreadable files are fatal.
func (c *Collector) Collect(ctx context.Context) ([]*types.Resource, error) {
	c.rejected = nil
	var out []*types.Resource
	for _, path := range c.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		resources, rejected := Convert(path, doc)
		for _, r := range rejected {
			c.logger.Warn("rejected inventory record",
				zap.String("source", r.Source),
				zap.Int("index", r.Index),
				zap.String("resource_id", r.ResourceID),
				zap.String("reason", r.Reason))
		}
		c.rejected = append(c.rejected, rejected...)
		out = append(out, resources...)
		c.logger.Debug("inventory loaded",
			zap.String("source", path),
			zap.Int("resources", len(resources)),
			zap.Int("rejected", len(rejected)))
	}
	return out, nil
}

// Rejected returns the records rejected by the last Collect
func (c *Collector) Rejected() []Rejection {
	return append([]Rejection(nil), c.rejected...)
}

// ReadFile reads an inventory document. Files ending in .json are decoded
// as JSON, anything else as YAML.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "read inventory "+path, err)
	}
	return Parse(data, strings.EqualFold(filepath.Ext(path), ".json"))
}

// Parse decodes an inventory document
func Parse(data []byte, isJSON bool) (*Document, error) {
	var doc Document
	var err error
	if isJSON {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "decode inventory", err)
	}
	return &doc, nil
}

// Convert builds validated snapshots from a document. Records that fail
// construction are returned as rejections.
func Convert(source string, doc *Document) ([]*types.Resource, []Rejection) {
	var (
		resources []*types.Resource
		rejected  []Rejection
	)
	for i, rec := range doc.Resources {
		r, err := rec.Resource()
		if err != nil {
			rejected = append(rejected, Rejection{
				Source:     source,
				Index:      i,
				ResourceID: rec.ID,
				Reason:     err.Error(),
			})
			continue
		}
		resources = append(resources, r)
	}
	return resources, rejected
}

// Resource converts the record, typing attributes against the schema of
// the record's resource type.
func (rec Record) Resource() (*types.Resource, error) {
	rt, err := types.ParseResourceType(rec.Type)
	if err != nil {
		return nil, err
	}
	created, err := parseTime(rec.CreatedAt)
	if err != nil && rec.CreatedAt != "" {
		return nil, fmt.Errorf("created_at: %w", err)
	}

	keys := make([]string, 0, len(rec.Attributes))
	for k := range rec.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]types.Attribute, 0, len(keys))
	for _, k := range keys {
		v, err := toValue(rt, k, rec.Attributes[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		attrs = append(attrs, types.Attribute{Key: k, Value: v})
	}

	return types.NewResource(types.ResourceSpec{
		ID:            rec.ID,
		Type:          rt,
		Name:          rec.Name,
		Location:      rec.Location,
		ResourceGroup: rec.ResourceGroup,
		CreatedAt:     created,
		Tags:          rec.Tags,
		Attributes:    attrs,
	})
}

// toValue types a raw attribute. Declared attributes are coerced to their
// schema kind; undeclared ones are inferred from the decoded value.
func toValue(rt types.ResourceType, key string, raw any) (types.Value, error) {
	spec, declared := types.LookupAttribute(rt, key)
	if !declared {
		return inferValue(raw)
	}
	switch spec.Kind {
	case types.KindString:
		s, ok := raw.(string)
		if !ok {
			return types.Value{}, fmt.Errorf("expected string, got %T", raw)
		}
		return types.StringValue(s), nil
	case types.KindNumber:
		f, ok := toFloat(raw)
		if !ok {
			return types.Value{}, fmt.Errorf("expected number, got %T", raw)
		}
		return types.NumberValue(f), nil
	case types.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return types.Value{}, fmt.Errorf("expected bool, got %T", raw)
		}
		return types.BoolValue(b), nil
	case types.KindList:
		items, err := toStrings(raw)
		if err != nil {
			return types.Value{}, err
		}
		return types.ListValue(items...), nil
	case types.KindTime:
		switch v := raw.(type) {
		case time.Time:
			return types.TimeValue(v), nil
		case string:
			t, err := parseTime(v)
			if err != nil {
				return types.Value{}, err
			}
			return types.TimeValue(t), nil
		}
		return types.Value{}, fmt.Errorf("expected timestamp, got %T", raw)
	}
	return types.Value{}, fmt.Errorf("unsupported kind %s", spec.Kind)
}

func inferValue(raw any) (types.Value, error) {
	switch v := raw.(type) {
	case string:
		return types.StringValue(v), nil
	case bool:
		return types.BoolValue(v), nil
	case time.Time:
		return types.TimeValue(v), nil
	case []any:
		items, err := toStrings(v)
		if err != nil {
			return types.Value{}, err
		}
		return types.ListValue(items...), nil
	}
	if f, ok := toFloat(raw); ok {
		return types.NumberValue(f), nil
	}
	return types.Value{}, fmt.Errorf("unsupported value %T", raw)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func toStrings(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", raw)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected list of strings, found %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
