package models

import (
	"errors"
	"fmt"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// MissionReport is the assessment shown on the report view.
type MissionReport struct {
	MarketPercentile         int                      `json:"marketPercentile"`
	SalaryComparison         SalaryComparison         `json:"salaryComparison"`
	NegotiationOpportunities []NegotiationOpportunity `json:"negotiationOpportunities"`
	RiskAssessment           RiskAssessment           `json:"riskAssessment"`
}

type SalaryComparison struct {
	Current  int `json:"current"`
	Market25 int `json:"market25"`
	Market50 int `json:"market50"`
	Market75 int `json:"market75"`
	Market90 int `json:"market90"`
}

type NegotiationOpportunity struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Impact      string   `json:"impact"`
	Priority    Priority `json:"priority"`
}

type RiskAssessment struct {
	Score   float64  `json:"score"`
	Factors []string `json:"factors"`
}

// Validate checks the ordering and range invariants of a report.
func (r *MissionReport) Validate() error {
	if r == nil {
		return errors.New("report is nil")
	}
	if r.MarketPercentile < 0 || r.MarketPercentile > 100 {
		return fmt.Errorf("market percentile %d out of range", r.MarketPercentile)
	}
	s := r.SalaryComparison
	if s.Market25 > s.Market50 || s.Market50 > s.Market75 || s.Market75 > s.Market90 {
		return errors.New("market benchmarks are not ordered")
	}
	if r.RiskAssessment.Score < 0 || r.RiskAssessment.Score > 10 {
		return fmt.Errorf("risk score %.1f out of range", r.RiskAssessment.Score)
	}
	for i, op := range r.NegotiationOpportunities {
		switch op.Priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			return fmt.Errorf("opportunity %d: unknown priority %q", i, op.Priority)
		}
	}
	return nil
}
