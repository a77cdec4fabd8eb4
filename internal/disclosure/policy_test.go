package disclosure

import (
	"encoding/json"
	"testing"

	"raiserocket/internal/models"
	"raiserocket/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	cases := map[string]Tier{
		"":            TierExplorer,
		"explorer":    TierExplorer,
		" Commander ": TierCommander,
	}
	for in, want := range cases {
		got, err := ParseTier(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseTier("admiral")
	assert.Error(t, err)
}

func TestRenderExplorer(t *testing.T) {
	rep := report.MockReport()
	v := Render(rep, TierExplorer)

	assert.Equal(t, 65, v.MarketPercentile)
	assert.Equal(t, 120000, v.Salary.Current)

	require.Len(t, v.Salary.Benchmarks, 3)
	keys := []string{}
	for _, b := range v.Salary.Benchmarks {
		keys = append(keys, b.Key)
		assert.True(t, b.Obscured, b.Key)
		assert.Nil(t, b.Value, b.Key)
		assert.Equal(t, ActionUpgrade, b.Action)
	}
	assert.Equal(t, []string{"market90", "market75", "market50"}, keys)

	require.Len(t, v.Opportunities, 3)
	first := v.Opportunities[0]
	assert.False(t, first.Locked)
	assert.Equal(t, rep.NegotiationOpportunities[0].Description, first.Description)
	assert.Equal(t, rep.NegotiationOpportunities[0].Impact, first.Impact)
	for _, op := range v.Opportunities[1:] {
		assert.True(t, op.Locked)
		assert.Equal(t, ActionUpgrade, op.Action)
		assert.NotEmpty(t, op.Title)
		assert.Empty(t, op.Description)
		assert.Empty(t, op.Impact)
	}

	assert.Equal(t, 7.5, v.Risk.Score)
	assert.Equal(t, []string{"Strong market position", "Company trajectory stable"}, v.Risk.Factors)
	assert.Equal(t, 1, v.Risk.HiddenFactors)
	assert.Equal(t, "And 1 more factors...", v.Risk.Placeholder)

	require.NotNil(t, v.Unlock)
	assert.Equal(t, ActionUpgrade, v.Unlock.Action)
}

func TestRenderExplorerDoesNotLeakWithheldValues(t *testing.T) {
	rep := report.MockReport()
	raw, err := json.Marshal(Render(rep, TierExplorer))
	require.NoError(t, err)
	body := string(raw)

	assert.NotContains(t, body, "160000")
	assert.NotContains(t, body, "140000")
	assert.NotContains(t, body, "125000")
	assert.NotContains(t, body, "110000")
	assert.NotContains(t, body, rep.NegotiationOpportunities[1].Description)
	assert.NotContains(t, body, rep.NegotiationOpportunities[2].Impact)
	assert.NotContains(t, body, rep.RiskAssessment.Factors[2])
}

func TestRenderCommanderShowsEverything(t *testing.T) {
	rep := report.MockReport()
	v := Render(rep, TierCommander)

	require.Len(t, v.Salary.Benchmarks, 4)
	for _, b := range v.Salary.Benchmarks {
		assert.False(t, b.Obscured)
		require.NotNil(t, b.Value)
	}
	assert.Equal(t, 110000, *v.Salary.Benchmarks[3].Value)
	for _, op := range v.Opportunities {
		assert.False(t, op.Locked)
		assert.NotEmpty(t, op.Description)
	}
	assert.Equal(t, rep.RiskAssessment.Factors, v.Risk.Factors)
	assert.Empty(t, v.Risk.Placeholder)
	assert.Nil(t, v.Unlock)
}

func TestCommanderRevealsStrictSupersetOfExplorer(t *testing.T) {
	rep := report.MockReport()
	explorer := VisibleFields(Render(rep, TierExplorer))
	commander := VisibleFields(Render(rep, TierCommander))

	assert.Subset(t, commander, explorer)
	assert.Greater(t, len(commander), len(explorer))
}

func TestRenderDoesNotModifyReport(t *testing.T) {
	rep := report.MockReport()
	v := Render(rep, TierExplorer)
	v.Risk.Factors[0] = "changed"
	assert.Equal(t, report.MockReport(), rep)
}

func TestRenderFewRiskFactorsHasNoPlaceholder(t *testing.T) {
	rep := report.MockReport()
	rep.RiskAssessment.Factors = rep.RiskAssessment.Factors[:2]
	v := Render(rep, TierExplorer)
	assert.Len(t, v.Risk.Factors, 2)
	assert.Empty(t, v.Risk.Placeholder)
	assert.Zero(t, v.Risk.HiddenFactors)
}

func TestRenderUnknownTierFallsBackToExplorer(t *testing.T) {
	v := Render(report.MockReport(), Tier("admiral"))
	assert.Equal(t, TierExplorer, v.Tier)
	assert.True(t, v.Opportunities[1].Locked)
}

func TestRenderEmptyOpportunities(t *testing.T) {
	rep := &models.MissionReport{MarketPercentile: 10}
	v := Render(rep, TierExplorer)
	assert.Empty(t, v.Opportunities)
	assert.Empty(t, v.Risk.Factors)
}

func TestUpgradePromptIsStable(t *testing.T) {
	a, b := UpgradePrompt(), UpgradePrompt()
	assert.Equal(t, a, b)
	require.Len(t, a.Plans, 2)
	assert.Equal(t, "FREE", a.Plans[0].Price)
	assert.Equal(t, "$99", a.Plans[1].Price)
	assert.Len(t, a.Features, 4)
	assert.Len(t, a.Testimonials, 3)
}
