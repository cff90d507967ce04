package static_analyzer

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/VectorBits/Reentry/src/internal/model"
)

// cachingAnalyzer shares results by program fingerprint; concurrent calls
// for the same program run the inner analyzer once.
type cachingAnalyzer struct {
	inner Analyzer
	cache sync.Map
	sf    singleflight.Group
}

func NewCachingAnalyzer(inner Analyzer) Analyzer {
	return &cachingAnalyzer{inner: inner}
}

func (a *cachingAnalyzer) Analyze(ctx context.Context, p *model.Program) (*AnalysisResult, error) {
	if p == nil || len(p.Contracts) == 0 {
		return nil, model.ErrEmptyProgram
	}
	key := p.Fingerprint.Hex()
	if v, ok := a.cache.Load(key); ok {
		return v.(*AnalysisResult), nil
	}
	v, err, _ := a.sf.Do(key, func() (interface{}, error) {
		if vv, ok := a.cache.Load(key); ok {
			return vv, nil
		}
		res, err := a.inner.Analyze(ctx, p)
		if err != nil {
			return nil, err
		}
		a.cache.Store(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AnalysisResult), nil
}

func (a *cachingAnalyzer) Close() error {
	return a.inner.Close()
}
