package ruleconfig

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"cloud-waste/internal/errors"
)

// ParseHCL decodes an HCL override document made of rule blocks:
//
//	rule "disk" "disk_unattached" {
//	  enabled      = true
//	  min_age_days = 14
//	  confidence   = { medium = 7, high = 30, critical = 90 }
//	}
func ParseHCL(src []byte, filename string) (Overrides, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfig, "parse HCL rule config", diags)
	}

	content, diags := file.Body.Content(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "rule", LabelNames: []string{"type", "scenario"}},
		},
	})
	if diags.HasErrors() {
		return nil, errors.Wrap(errors.TypeConfig, "decode HCL rule config", diags)
	}

	o := Overrides{}
	for _, block := range content.Blocks {
		resourceType, scenario := block.Labels[0], block.Labels[1]
		fields, err := extractAttributes(block.Body)
		if err != nil {
			line := block.DefRange.Start.Line
			return nil, errors.Wrapf(errors.TypeConfig, err, "%s:%d: rule %q %q", filename, line, resourceType, scenario)
		}
		if o[resourceType] == nil {
			o[resourceType] = map[string]map[string]any{}
		}
		if o[resourceType][scenario] == nil {
			o[resourceType][scenario] = map[string]any{}
		}
		for k, v := range fields {
			o[resourceType][scenario][k] = v
		}
	}
	return o, nil
}

func extractAttributes(body hcl.Body) (map[string]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		v, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// ctyToGo converts a literal value to the shapes the YAML decoder produces
func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case t == cty.Bool:
		return v.True(), nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := []any{}
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			g, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := map[string]any{}
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			g, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = g
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", t.FriendlyName())
	}
}
