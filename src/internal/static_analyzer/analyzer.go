package static_analyzer

import (
	"context"
	"fmt"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	"github.com/VectorBits/Reentry/src/internal/model"
)

// Analyzer turns a program model into an analysis result. Implementations
// must not mutate the program.
type Analyzer interface {
	Analyze(ctx context.Context, p *model.Program) (*AnalysisResult, error)

	Close() error
}

// LoadProgram reads every path (file or directory of AST JSON) and builds
// the program model over the union of their sources.
func LoadProgram(paths ...string) (*model.Program, error) {
	var sources []*astparser.ParsedSource
	for _, path := range paths {
		ps, err := astparser.LoadPath(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		sources = append(sources, ps...)
	}
	p, err := model.Build(sources)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	return p, nil
}

// AnalyzePaths is LoadProgram followed by Analyze.
func AnalyzePaths(ctx context.Context, a Analyzer, paths ...string) (*AnalysisResult, error) {
	p, err := LoadProgram(paths...)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, p)
}

type NoOpAnalyzer struct{}

func (n *NoOpAnalyzer) Analyze(ctx context.Context, p *model.Program) (*AnalysisResult, error) {
	return &AnalysisResult{}, nil
}

func (n *NoOpAnalyzer) Close() error {
	return nil
}

func NewNoOpAnalyzer() Analyzer {
	return &NoOpAnalyzer{}
}
