// Package api is a thin HTTP layer over the scan engine.
// It only ingests input, runs the engine and serializes output.
package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cloud-waste/adapters/inventory"
	"cloud-waste/adapters/report"
	"cloud-waste/core/dedup"
	"cloud-waste/core/determinism"
	"cloud-waste/core/engine"
	"cloud-waste/core/metrics"
	"cloud-waste/core/pricing"
	"cloud-waste/core/rules"
	"cloud-waste/core/telemetry"
	"cloud-waste/core/types"
	"cloud-waste/internal/logging"
)

// maxBodyBytes bounds a scan request body
const maxBodyBytes = 32 << 20

// Config wires a Server
type Config struct {
	Version string
	Pricing *pricing.Model
	Options engine.Options
	Logger  *zap.Logger

	// Registry receives scan telemetry and is served on /metrics. Nil
	// disables both.
	Registry *prometheus.Registry
}

// Server is the API server
type Server struct {
	mux      *http.ServeMux
	version  string
	pricing  *pricing.Model
	options  engine.Options
	logger   *zap.Logger
	recorder *telemetry.Recorder
}

// NewServer creates a new API server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Pricing == nil {
		cfg.Pricing = pricing.NewModel(nil)
	}
	s := &Server{
		mux:     http.NewServeMux(),
		version: cfg.Version,
		pricing: cfg.Pricing,
		options: cfg.Options,
		logger:  logging.OrDefault(cfg.Logger),
	}
	if cfg.Registry != nil {
		rec, err := telemetry.NewRecorder(cfg.Registry)
		if err != nil {
			return nil, err
		}
		s.recorder = rec
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /scan", s.handleScan)
	s.mux.HandleFunc("GET /rules", s.handleRules)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
}

// handleScan handles POST /scan
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Resources) == 0 {
		s.writeError(w, "VALIDATION_ERROR", "resources must not be empty", http.StatusBadRequest)
		return
	}
	var minConfidence types.Confidence
	if req.Options.MinConfidence != "" {
		c, err := types.ParseConfidence(req.Options.MinConfidence)
		if err != nil {
			s.writeError(w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		minConfidence = c
	}

	resources, rejected := inventory.Convert("request", &inventory.Document{Resources: req.Resources})

	var gateway metrics.Gateway
	if req.Metrics != nil {
		gw := metrics.NewStaticGateway()
		now := time.Now
		if s.options.Now != nil {
			now = s.options.Now
		}
		if err := req.Metrics.Load(gw, now()); err != nil {
			s.writeError(w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		gateway = gw
	}

	opts := s.options
	opts.SkipMetrics = opts.SkipMetrics || req.Options.SkipMetrics
	opts.ExcludeResourceIDs = req.Options.ExcludeResourceIDs
	opts.ExcludeTags = req.Options.ExcludeTags

	eng := engine.New(engine.Config{
		Pricing:  s.pricing,
		Gateway:  gateway,
		Logger:   s.logger,
		Recorder: s.recorder,
		Options:  opts,
	})
	result, err := eng.RunScan(r.Context(), resources, req.Overrides)
	if err != nil {
		s.writeError(w, "ENGINE_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	findings := result.Findings
	if req.Options.MinMonthlyCost > 0 {
		findings = dedup.FilterMinCost(findings, decimal.NewFromFloat(req.Options.MinMonthlyCost))
	}
	if minConfidence != "" {
		findings = dedup.FilterMinConfidence(findings, minConfidence)
	}

	s.writeJSON(w, struct {
		*report.Report
		Metadata ResponseMetadata `json:"metadata"`
	}{
		Report: report.Build(result, findings, rejected),
		Metadata: ResponseMetadata{
			InputHash:     inputHash(&req),
			EngineVersion: s.version,
			DurationMs:    time.Since(start).Milliseconds(),
		},
	}, http.StatusOK)
}

// handleRules handles GET /rules
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	catalog := rules.DefaultCatalog()
	out := make([]RuleInfo, 0, catalog.Len())
	for _, rule := range catalog.Rules() {
		info := RuleInfo{
			ScenarioID:  rule.ScenarioID,
			Description: rule.Description,
			Category:    string(rule.Category),
			Phase:       "attributes",
			Params:      map[string]any{},
		}
		if rule.Phase() == rules.PhaseMetrics {
			info.Phase = "metrics"
		}
		for _, t := range rule.AppliesTo {
			info.AppliesTo = append(info.AppliesTo, string(t))
		}
		for _, p := range rule.Params {
			info.Params[p.Name] = p.Default
		}
		out = append(out, info)
	}
	s.writeJSON(w, map[string]any{
		"catalog_version": catalog.Version(),
		"rules":           out,
	}, http.StatusOK)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"version":             s.version,
		"catalog_version":     rules.CatalogVersion,
		"price_table_version": s.pricing.Version(),
		"price_table_hash":    s.pricing.Table().Hash().Hex(),
	}, http.StatusOK)
}

func (s *Server) writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code, message string, status int) {
	s.writeJSON(w, ErrorBody{Error: ErrorDetail{Code: code, Message: message}}, status)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// inputHash fingerprints a request so identical inputs can be correlated
func inputHash(req *ScanRequest) string {
	data, _ := json.Marshal(req)
	return determinism.ComputeHash(data).Hex()
}
