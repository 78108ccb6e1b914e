// result.go - Validation and shaping of the screenshot analysis reply

package ai

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bosocmputer/waspada_api/internal/resources"
)

// RequiredKeys must all be present in the model reply
var RequiredKeys = []string{
	"out_of_scope",
	"malaysia_relevance",
	"scenario",
	"verdict",
	"risk",
	"what_the_screenshot_suggests",
	"key_red_flags",
	"what_to_do_next",
	"who_to_contact",
	"evidence_to_save",
	"message_you_can_copy",
	"disclaimer",
}

// Scenario, verdict and risk enums with their fallbacks
var (
	Scenarios = []string{
		"BANK_TRANSFER", "UNAUTHORISED_TRANSACTION", "IMPERSONATION", "COURIER_PARCEL",
		"INVESTMENT", "JOB_SCAM", "ROMANCE", "OTP_MALWARE", "MARKETPLACE", "OTHER",
	}
	Verdicts = []string{"LIKELY_SAFE", "SUSPICIOUS", "LIKELY_SCAM", "CRITICAL_RISK"}
	Risks    = []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}
)

const (
	defaultScenario = "OTHER"
	defaultVerdict  = "SUSPICIOUS"
	defaultRisk     = "MEDIUM"

	maxRedFlags       = 8
	maxNextSteps      = 10
	maxEvidenceToSave = 8

	defaultDisclaimer = "This is AI-generated guidance based on the screenshot. It may be wrong or incomplete and is not official advice. For urgent cases, contact your bank and the relevant authorities."
)

// AnalysisResult is the shaped reply returned under "result"
type AnalysisResult struct {
	Lang                      string              `json:"lang"`
	OutOfScope                bool                `json:"out_of_scope"`
	MalaysiaRelevance         string              `json:"malaysia_relevance"`
	Scenario                  string              `json:"scenario"`
	Verdict                   string              `json:"verdict"`
	Risk                      string              `json:"risk"`
	WhatTheScreenshotSuggests string              `json:"what_the_screenshot_suggests"`
	KeyRedFlags               []string            `json:"key_red_flags"`
	WhatToDoNext              []string            `json:"what_to_do_next"`
	WhoToContact              []string            `json:"who_to_contact"`
	EvidenceToSave            []string            `json:"evidence_to_save"`
	MessageYouCanCopy         string              `json:"message_you_can_copy"`
	Disclaimer                string              `json:"disclaimer"`
	OfficialResources         []resources.Hotline `json:"official_resources"`
}

// MissingKeysError lists required keys absent from the model reply
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("model response missing keys: %s", strings.Join(e.Keys, ", "))
}

// MalformedResponseError means the provider answered but the reply was unusable
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ValidateAnalysis checks required keys and normalizes every field
func ValidateAnalysis(data map[string]interface{}) (*AnalysisResult, error) {
	var missing []string
	for _, key := range RequiredKeys {
		if _, ok := data[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingKeysError{Keys: missing}
	}

	result := &AnalysisResult{
		OutOfScope:                asBool(data["out_of_scope"]),
		MalaysiaRelevance:         asString(data["malaysia_relevance"]),
		Scenario:                  normalizeEnum(data["scenario"], Scenarios, defaultScenario),
		Verdict:                   normalizeEnum(data["verdict"], Verdicts, defaultVerdict),
		Risk:                      normalizeEnum(data["risk"], Risks, defaultRisk),
		WhatTheScreenshotSuggests: asString(data["what_the_screenshot_suggests"]),
		KeyRedFlags:               asStringList(data["key_red_flags"], maxRedFlags),
		WhatToDoNext:              asStringList(data["what_to_do_next"], maxNextSteps),
		WhoToContact:              asStringList(data["who_to_contact"], 0),
		EvidenceToSave:            asStringList(data["evidence_to_save"], maxEvidenceToSave),
		MessageYouCanCopy:         asString(data["message_you_can_copy"]),
		Disclaimer:                asString(data["disclaimer"]),
	}

	if result.Disclaimer == "" {
		result.Disclaimer = defaultDisclaimer
	}

	return result, nil
}

func normalizeEnum(v interface{}, allowed []string, fallback string) string {
	s := strings.ToUpper(strings.TrimSpace(asString(v)))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if s == "UNAUTHORIZED_TRANSACTION" {
		s = "UNAUTHORISED_TRANSACTION"
	}
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return fallback
}

func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	default:
		return false
	}
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// asStringList accepts an array or a single string; limit 0 means no cap
func asStringList(v interface{}, limit int) []string {
	out := []string{}

	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, item := range t {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := asString(t); s != "" {
			out = append(out, s)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
