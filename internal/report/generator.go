// Package report produces the mission report shown after a scan.
//
// Generation sits behind the Generator interface so that a real analysis
// backend can replace the mock without touching sequencing or disclosure.
package report

import (
	"context"

	"raiserocket/internal/models"
)

// Generator turns an intake record (possibly nil) into a report.
type Generator interface {
	Generate(ctx context.Context, intake *models.IntakeRecord) (*models.MissionReport, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, intake *models.IntakeRecord) (*models.MissionReport, error)

func (f GeneratorFunc) Generate(ctx context.Context, intake *models.IntakeRecord) (*models.MissionReport, error) {
	return f(ctx, intake)
}

// Mock returns the same preset report for any input.
type Mock struct{}

func (Mock) Generate(_ context.Context, _ *models.IntakeRecord) (*models.MissionReport, error) {
	return MockReport(), nil
}

// MockReport builds a fresh copy of the preset report.
func MockReport() *models.MissionReport {
	return &models.MissionReport{
		MarketPercentile: 65,
		SalaryComparison: models.SalaryComparison{
			Current:  120000,
			Market25: 110000,
			Market50: 125000,
			Market75: 140000,
			Market90: 160000,
		},
		NegotiationOpportunities: []models.NegotiationOpportunity{
			{
				Title:       "Base Salary Optimization",
				Description: "Market analysis suggests 12-18% upward potential based on skill trajectory",
				Impact:      "+$15,000 - $22,000",
				Priority:    models.PriorityHigh,
			},
			{
				Title:       "Equity Package Enhancement",
				Description: "Stock options below industry standard for this orbital class",
				Impact:      "+$8,000 - $12,000 annually",
				Priority:    models.PriorityHigh,
			},
			{
				Title:       "Performance Bonus Structure",
				Description: "Opportunity to negotiate variable compensation alignment",
				Impact:      "+$5,000 - $8,000",
				Priority:    models.PriorityMedium,
			},
		},
		RiskAssessment: models.RiskAssessment{
			Score: 7.5,
			Factors: []string{
				"Strong market position",
				"Company trajectory stable",
				"Minimal negotiation resistance expected",
			},
		},
	}
}
