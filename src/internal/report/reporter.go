package report

import (
	"fmt"
	"time"

	sa "github.com/VectorBits/Reentry/src/internal/static_analyzer"
)

type Reporter struct {
	generator Generator
	storage   Storage
}

func NewReporter(generator Generator, storage Storage) *Reporter {
	return &Reporter{
		generator: generator,
		storage:   storage,
	}
}

func (r *Reporter) GenerateAndSave(report *Report) (string, error) {
	// 生成报告内容
	content, err := r.generator.Generate(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	// 保存报告
	filepath, err := r.storage.Save(report, content, r.generator.Extension())
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	return filepath, nil
}

func NewReport(runID string, sources []string, res *sa.AnalysisResult) *Report {
	return &Report{
		RunID:    runID,
		Sources:  sources,
		ScanTime: time.Now(),
		Result:   res,
	}
}
