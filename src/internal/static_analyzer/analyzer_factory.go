package static_analyzer

import (
	"fmt"

	"github.com/VectorBits/Reentry/src/internal/config"
	"github.com/VectorBits/Reentry/src/internal/detector"
)

type BackendType string

const (
	BackendEngine BackendType = "engine"
	BackendNoOp   BackendType = "noop" // No-op implementation for testing
)

type AnalyzerConfig struct {
	Backend  BackendType
	Enabled  bool // Whether the analyzer is enabled
	Cache    bool // Share results between runs over the same program
	Detector detector.Options
	Analysis AnalysisConfig
}

// NewAnalyzer creates an analyzer instance
func NewAnalyzer(cfg AnalyzerConfig) (Analyzer, error) {
	if !cfg.Enabled {
		return NewNoOpAnalyzer(), nil
	}

	var a Analyzer
	switch cfg.Backend {
	case BackendEngine, "":
		if err := cfg.Detector.Policy.Validate(); err != nil {
			return nil, err
		}
		a = &engineAnalyzer{detector: cfg.Detector, config: cfg.Analysis}

	case BackendNoOp:
		return NewNoOpAnalyzer(), nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s (supported: engine, noop)", cfg.Backend)
	}

	if cfg.Cache {
		a = NewCachingAnalyzer(a)
	}
	return a, nil
}

func DefaultConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Backend:  BackendEngine,
		Enabled:  true,
		Detector: detector.DefaultOptions(),
		Analysis: AnalysisConfig{CallTreeDepth: 10},
	}
}

// ConfigFromSettings maps the settings file onto an analyzer config.
func ConfigFromSettings(app *config.AppConfig) AnalyzerConfig {
	cfg := DefaultConfig()
	cfg.Cache = true
	cfg.Detector.Concurrency = app.Analysis.Concurrency
	cfg.Detector.MaxCallbackDepth = app.Analysis.MaxCallbackDepth
	cfg.Detector.Policy = app.Severity
	cfg.Analysis.IncludeCFG = app.Analysis.IncludeCFG
	cfg.Analysis.CallTreeDepth = app.Analysis.CallTreeDepth
	return cfg
}
