package store

import (
	"encoding/json"
	"fmt"
	"strings"

	sa "github.com/VectorBits/Reentry/src/internal/static_analyzer"
)

// RunFromResult builds a run record carrying res and its summary counters.
func RunFromResult(res *sa.AnalysisResult, sources []string) (*Run, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	run := NewRun(res.Fingerprint, sources)
	run.Contracts = res.Summary.TotalContracts
	run.Functions = res.Summary.TotalFunctions
	run.Findings = res.Summary.ReentrancyPatterns
	run.Critical = res.Summary.CriticalIssues
	run.High = res.Summary.HighIssues
	run.Medium = res.Summary.MediumIssues
	run.Low = res.Summary.LowIssues
	run.Result = string(data)
	return run, nil
}

// Decode returns the stored result. List does not load results.
func (r *Run) Decode() (*sa.AnalysisResult, error) {
	if r.Result == "" {
		return nil, fmt.Errorf("run %s has no stored result", r.ID)
	}
	var res sa.AnalysisResult
	if err := json.Unmarshal([]byte(r.Result), &res); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", r.ID, err)
	}
	return &res, nil
}

func (r *Run) SourceList() []string {
	if r.Sources == "" {
		return nil
	}
	return strings.Split(r.Sources, "\n")
}
