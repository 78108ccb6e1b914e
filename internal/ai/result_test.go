package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validReplyMap() map[string]interface{} {
	return map[string]interface{}{
		"out_of_scope":                 false,
		"malaysia_relevance":           "Mentions Maybank and a Malaysian phone number.",
		"scenario":                     "BANK_TRANSFER",
		"verdict":                      "LIKELY_SCAM",
		"risk":                         "HIGH",
		"what_the_screenshot_suggests": "A stranger asks for an urgent transfer.",
		"key_red_flags":                []interface{}{"Urgency", "Unknown account"},
		"what_to_do_next":              []interface{}{"Do not transfer", "Call NSRC 997"},
		"who_to_contact":               []interface{}{"NSRC 997"},
		"evidence_to_save":             []interface{}{"Screenshots"},
		"message_you_can_copy":         "Hi, I think I was targeted by a scam.",
		"disclaimer":                   "AI-generated guidance.",
	}
}

func validReplyJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(validReplyMap())
	require.NoError(t, err)
	return string(b)
}

func TestValidateAnalysis_Valid(t *testing.T) {
	result, err := ValidateAnalysis(validReplyMap())
	require.NoError(t, err)

	assert.False(t, result.OutOfScope)
	assert.Equal(t, "BANK_TRANSFER", result.Scenario)
	assert.Equal(t, "LIKELY_SCAM", result.Verdict)
	assert.Equal(t, "HIGH", result.Risk)
	assert.Equal(t, []string{"Urgency", "Unknown account"}, result.KeyRedFlags)
	assert.Equal(t, "AI-generated guidance.", result.Disclaimer)
}

func TestValidateAnalysis_MissingKeys(t *testing.T) {
	data := validReplyMap()
	delete(data, "verdict")
	delete(data, "disclaimer")

	_, err := ValidateAnalysis(data)

	var missing *MissingKeysError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"disclaimer", "verdict"}, missing.Keys)
	assert.Contains(t, err.Error(), "disclaimer, verdict")
}

func TestValidateAnalysis_NormalizesFields(t *testing.T) {
	data := validReplyMap()
	data["out_of_scope"] = "TRUE"
	data["scenario"] = "job scam"
	data["verdict"] = "probably fine"
	data["risk"] = "extreme"
	data["key_red_flags"] = "Single red flag as a string"
	data["what_to_do_next"] = []interface{}{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}
	data["evidence_to_save"] = []interface{}{"a", " ", nil, 42.0}
	data["who_to_contact"] = nil
	data["disclaimer"] = ""

	result, err := ValidateAnalysis(data)
	require.NoError(t, err)

	assert.True(t, result.OutOfScope)
	assert.Equal(t, "JOB_SCAM", result.Scenario)
	assert.Equal(t, defaultVerdict, result.Verdict)
	assert.Equal(t, defaultRisk, result.Risk)
	assert.Equal(t, []string{"Single red flag as a string"}, result.KeyRedFlags)
	assert.Len(t, result.WhatToDoNext, maxNextSteps)
	assert.Equal(t, []string{"a", "42"}, result.EvidenceToSave)
	assert.NotNil(t, result.WhoToContact)
	assert.Empty(t, result.WhoToContact)
	assert.Equal(t, defaultDisclaimer, result.Disclaimer)
}

func TestNormalizeEnum(t *testing.T) {
	assert.Equal(t, "UNAUTHORISED_TRANSACTION", normalizeEnum("unauthorized transaction", Scenarios, defaultScenario))
	assert.Equal(t, "OTP_MALWARE", normalizeEnum(" otp-malware ", Scenarios, defaultScenario))
	assert.Equal(t, "OTHER", normalizeEnum(12.0, Scenarios, defaultScenario))
	assert.Equal(t, "CRITICAL_RISK", normalizeEnum("critical_risk", Verdicts, defaultVerdict))
}

func TestAsBool(t *testing.T) {
	assert.True(t, asBool(true))
	assert.True(t, asBool("true"))
	assert.False(t, asBool("false"))
	assert.False(t, asBool("maybe"))
	assert.True(t, asBool(1.0))
	assert.False(t, asBool(nil))
}
