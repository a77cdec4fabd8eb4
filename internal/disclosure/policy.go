package disclosure

import (
	"fmt"
	"strings"

	"raiserocket/internal/models"
)

// Tier gates how much of a report is revealed.
type Tier string

const (
	TierExplorer  Tier = "explorer"
	TierCommander Tier = "commander"
)

// ActionUpgrade is the one action every locked element triggers.
const ActionUpgrade = "upgrade"

// freeRiskFactors is how many risk factors explorer sees before the collapse line.
const freeRiskFactors = 2

// ParseTier maps an empty string to explorer.
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case "", TierExplorer:
		return TierExplorer, nil
	case TierCommander:
		return TierCommander, nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// View is a report prepared for display. Withheld values are absent, not
// merely flagged.
type View struct {
	Tier             Tier              `json:"tier"`
	MarketPercentile int               `json:"marketPercentile"`
	Salary           SalaryView        `json:"salary"`
	Opportunities    []OpportunityView `json:"opportunities"`
	Risk             RiskView          `json:"risk"`
	Unlock           *UnlockControl    `json:"unlock,omitempty"`
}

type SalaryView struct {
	Current    int             `json:"current"`
	Benchmarks []BenchmarkView `json:"benchmarks"`
}

type BenchmarkView struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Value    *int   `json:"value,omitempty"`
	Obscured bool   `json:"obscured"`
	Action   string `json:"action,omitempty"`
}

type OpportunityView struct {
	Index       int             `json:"index"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Impact      string          `json:"impact,omitempty"`
	Priority    models.Priority `json:"priority,omitempty"`
	Locked      bool            `json:"locked"`
	Action      string          `json:"action,omitempty"`
}

type RiskView struct {
	Score         float64  `json:"score"`
	Factors       []string `json:"factors"`
	HiddenFactors int      `json:"hiddenFactors,omitempty"`
	Placeholder   string   `json:"placeholder,omitempty"`
	Action        string   `json:"action,omitempty"`
}

// UnlockControl is the explicit "unlock" button.
type UnlockControl struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Render applies the tier rules to report. The report is not modified.
func Render(report *models.MissionReport, tier Tier) View {
	if tier != TierCommander {
		tier = TierExplorer
	}
	full := tier == TierCommander

	v := View{
		Tier:             tier,
		MarketPercentile: report.MarketPercentile,
		Salary:           renderSalary(report.SalaryComparison, full),
		Opportunities:    make([]OpportunityView, 0, len(report.NegotiationOpportunities)),
		Risk:             renderRisk(report.RiskAssessment, full),
	}
	for i, op := range report.NegotiationOpportunities {
		ov := OpportunityView{Index: i, Title: op.Title}
		if full || i == 0 {
			ov.Description = op.Description
			ov.Impact = op.Impact
			ov.Priority = op.Priority
		} else {
			ov.Locked = true
			ov.Action = ActionUpgrade
		}
		v.Opportunities = append(v.Opportunities, ov)
	}
	if !full {
		v.Unlock = &UnlockControl{Label: "Unlock Full Data", Action: ActionUpgrade}
	}
	return v
}

func renderSalary(s models.SalaryComparison, full bool) SalaryView {
	view := SalaryView{Current: s.Current}
	type bench struct {
		key, label string
		value      int
	}
	benches := []bench{
		{"market90", "90th Percentile", s.Market90},
		{"market75", "75th Percentile", s.Market75},
		{"market50", "50th Percentile", s.Market50},
	}
	if full {
		benches = append(benches, bench{"market25", "25th Percentile", s.Market25})
	}
	for _, b := range benches {
		bv := BenchmarkView{Key: b.key, Label: b.label}
		if full {
			value := b.value
			bv.Value = &value
		} else {
			bv.Obscured = true
			bv.Action = ActionUpgrade
		}
		view.Benchmarks = append(view.Benchmarks, bv)
	}
	return view
}

func renderRisk(r models.RiskAssessment, full bool) RiskView {
	view := RiskView{Score: r.Score}
	if full || len(r.Factors) <= freeRiskFactors {
		view.Factors = append([]string{}, r.Factors...)
		return view
	}
	view.Factors = append([]string{}, r.Factors[:freeRiskFactors]...)
	view.HiddenFactors = len(r.Factors) - freeRiskFactors
	view.Placeholder = fmt.Sprintf("And %d more factors...", view.HiddenFactors)
	view.Action = ActionUpgrade
	return view
}

// VisibleFields lists the report fields whose values a view reveals.
func VisibleFields(v View) []string {
	fields := []string{"marketPercentile", "salary.current"}
	for _, b := range v.Salary.Benchmarks {
		if !b.Obscured && b.Value != nil {
			fields = append(fields, "salary."+b.Key)
		}
	}
	for _, op := range v.Opportunities {
		prefix := fmt.Sprintf("opportunities[%d].", op.Index)
		fields = append(fields, prefix+"title")
		if !op.Locked {
			fields = append(fields, prefix+"description", prefix+"impact", prefix+"priority")
		}
	}
	fields = append(fields, "risk.score")
	for i := range v.Risk.Factors {
		fields = append(fields, fmt.Sprintf("risk.factors[%d]", i))
	}
	return fields
}
