package static_analyzer

// DropFindings returns a copy of res without the findings of contracts for
// which drop holds. The summary is recomputed; res is left untouched since
// cached results are shared.
func DropFindings(res *AnalysisResult, drop func(ContractSummary) bool) *AnalysisResult {
	skip := make(map[string]bool)
	for _, c := range res.Contracts {
		if drop(c) {
			skip[c.Name] = true
		}
	}
	if len(skip) == 0 {
		return res
	}
	out := *res
	out.Findings = make([]Finding, 0, len(res.Findings))
	for _, f := range res.Findings {
		if !skip[f.Contract] {
			out.Findings = append(out.Findings, f)
		}
	}
	out.Summary = Summarize(&out)
	return &out
}
