package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeRecordJSONShape(t *testing.T) {
	data, err := json.Marshal(ManualIntake("Senior engineer, 120k base"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"manual","offerDetails":"Senior engineer, 120k base"}`, string(data))

	data, err = json.Marshal(UploadIntake("offer.pdf"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"upload","fileName":"offer.pdf"}`, string(data))
}

func TestIntakeRecordDecodeDropsForeignVariantFields(t *testing.T) {
	var rec IntakeRecord
	require.NoError(t, json.Unmarshal([]byte(`{"method":"upload","fileName":"a.doc","offerDetails":"stray"}`), &rec))
	assert.Equal(t, IntakeRecord{Method: MethodUpload, FileName: "a.doc"}, rec)

	require.Error(t, json.Unmarshal([]byte(`{"method":"fax"}`), &rec))
	_, err := json.Marshal(IntakeRecord{Method: "fax"})
	require.Error(t, err)
}

func TestMissionReportValidate(t *testing.T) {
	report := &MissionReport{
		MarketPercentile: 65,
		SalaryComparison: SalaryComparison{Current: 1, Market25: 1, Market50: 2, Market75: 3, Market90: 4},
		NegotiationOpportunities: []NegotiationOpportunity{
			{Title: "a", Priority: PriorityLow},
		},
		RiskAssessment: RiskAssessment{Score: 7.5},
	}
	require.NoError(t, report.Validate())

	report.SalaryComparison.Market75 = 5
	require.Error(t, report.Validate())
	report.SalaryComparison.Market75 = 3

	report.NegotiationOpportunities[0].Priority = "urgent"
	require.Error(t, report.Validate())
	report.NegotiationOpportunities[0].Priority = PriorityHigh

	report.RiskAssessment.Score = 11
	require.Error(t, report.Validate())

	var nilReport *MissionReport
	require.Error(t, nilReport.Validate())
}
