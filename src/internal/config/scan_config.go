package config

// AnalysisConfig 分析相关
type AnalysisConfig struct {
	// Concurrency caps parallel function analysis; 0 uses GOMAXPROCS.
	Concurrency      int  `yaml:"concurrency"`
	MaxCallbackDepth int  `yaml:"max_callback_depth"`
	IncludeCFG       bool `yaml:"include_cfg"`
	CallTreeDepth    int  `yaml:"call_tree_depth"`
}

func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		MaxCallbackDepth: 8,
		CallTreeDepth:    10,
	}
}
