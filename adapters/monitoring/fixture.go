// Package monitoring loads recorded metric series into a metrics gateway.
package monitoring

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"cloud-waste/core/metrics"
	"cloud-waste/internal/errors"
)

// Fixture is the on-disk metrics format
type Fixture struct {
	Series []Series `json:"series" yaml:"series"`
}

// Series is one metric of one resource
type Series struct {
	ResourceID string          `json:"resource_id" yaml:"resource_id"`
	Metric     string          `json:"metric" yaml:"metric"`
	Points     []metrics.Point `json:"points" yaml:"points"`

	// Hourly generates a constant series ending at the load time
	Hourly *Constant `json:"hourly,omitempty" yaml:"hourly,omitempty"`
}

// Constant describes a flat hourly series
type Constant struct {
	Value float64 `json:"value" yaml:"value"`
	Hours int     `json:"hours" yaml:"hours"`
}

// LoadFile reads a fixture file into a new static gateway. Generated hourly
// series end at the hour containing now.
func LoadFile(path string, now time.Time) (*metrics.StaticGateway, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "read metrics fixture "+path, err)
	}
	f, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, err
	}
	gw := metrics.NewStaticGateway()
	if err := f.Load(gw, now); err != nil {
		return nil, err
	}
	return gw, nil
}

// Parse decodes a fixture document
func Parse(data []byte, isJSON bool) (*Fixture, error) {
	var f Fixture
	var err error
	if isJSON {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "decode metrics fixture", err)
	}
	return &f, nil
}

// Load adds every series to gw
func (f *Fixture) Load(gw *metrics.StaticGateway, now time.Time) error {
	for i, s := range f.Series {
		if s.ResourceID == "" || s.Metric == "" {
			return errors.Newf(errors.TypeInput, "series %d: resource_id and metric are required", i)
		}
		points := append([]metrics.Point(nil), s.Points...)
		if s.Hourly != nil {
			if s.Hourly.Hours < 0 {
				return errors.Newf(errors.TypeInput, "series %d: hourly.hours must not be negative", i)
			}
			end := now.UTC().Truncate(time.Hour)
			for h := 1; h <= s.Hourly.Hours; h++ {
				points = append(points, metrics.Point{
					Timestamp: end.Add(-time.Duration(h) * time.Hour),
					Value:     s.Hourly.Value,
				})
			}
		}
		gw.Add(s.ResourceID, s.Metric, points...)
	}
	return nil
}
