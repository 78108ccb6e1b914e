// plans.go - Scenario normalization for action plans

package resources

import (
	"regexp"
	"strings"
)

// Plan keys
const (
	ScenarioMoneyMoved    = "money_moved"
	ScenarioAskedToPay    = "asked_to_pay"
	ScenarioOTPPassword   = "otp_password"
	ScenarioImpersonation = "impersonation"
	ScenarioCourier       = "courier"
	ScenarioInvestment    = "investment"
	ScenarioJob           = "job"
	ScenarioRomance       = "romance"
	ScenarioOther         = "other"
)

// Model scenario enum -> plan key
var modelScenarios = map[string]string{
	"BANK_TRANSFER":            ScenarioMoneyMoved,
	"UNAUTHORISED_TRANSACTION": ScenarioMoneyMoved,
	"UNAUTHORIZED_TRANSACTION": ScenarioMoneyMoved,
	"IMPERSONATION":            ScenarioImpersonation,
	"COURIER_PARCEL":           ScenarioCourier,
	"INVESTMENT":               ScenarioInvestment,
	"JOB_SCAM":                 ScenarioJob,
	"ROMANCE":                  ScenarioRomance,
	"OTP_MALWARE":              ScenarioOTPPassword,
	"MARKETPLACE":              ScenarioAskedToPay,
	"OTHER":                    ScenarioOther,
}

// Free-text aliases, matched after lowercasing and collapsing separators
var scenarioAliases = map[string]string{
	"money moved":         ScenarioMoneyMoved,
	"money already moved": ScenarioMoneyMoved,
	"bank transfer":       ScenarioMoneyMoved,
	"funds moved":         ScenarioMoneyMoved,

	"asked to pay":       ScenarioAskedToPay,
	"asked to pay money": ScenarioAskedToPay,
	"payment request":    ScenarioAskedToPay,
	"pay now":            ScenarioAskedToPay,

	"otp":              ScenarioOTPPassword,
	"otp password":     ScenarioOTPPassword,
	"otp / password":   ScenarioOTPPassword,
	"password":         ScenarioOTPPassword,
	"tac":              ScenarioOTPPassword,
	"otp tac":          ScenarioOTPPassword,
	"otp tac password": ScenarioOTPPassword,

	"courier":  ScenarioCourier,
	"delivery": ScenarioCourier,
	"parcel":   ScenarioCourier,
	"poslaju":  ScenarioCourier,
	"j&t":      ScenarioCourier,
	"jnt":      ScenarioCourier,
	"dhl":      ScenarioCourier,

	"investment":  ScenarioInvestment,
	"crypto":      ScenarioInvestment,
	"forex":       ScenarioInvestment,
	"high return": ScenarioInvestment,
	"trading":     ScenarioInvestment,

	"job":         ScenarioJob,
	"recruitment": ScenarioJob,
	"interview":   ScenarioJob,
	"work offer":  ScenarioJob,

	"romance": ScenarioRomance,
	"love":    ScenarioRomance,
	"tinder":  ScenarioRomance,
	"dating":  ScenarioRomance,

	"impersonation":      ScenarioImpersonation,
	"scammer pretending": ScenarioImpersonation,
	"police":             ScenarioImpersonation,
	"bank officer":       ScenarioImpersonation,
	"gov officer":        ScenarioImpersonation,

	"other":   ScenarioOther,
	"see all": ScenarioOther,
	"unknown": ScenarioOther,
}

var planKeys = map[string]bool{
	ScenarioMoneyMoved:    true,
	ScenarioAskedToPay:    true,
	ScenarioOTPPassword:   true,
	ScenarioImpersonation: true,
	ScenarioCourier:       true,
	ScenarioInvestment:    true,
	ScenarioJob:           true,
	ScenarioRomance:       true,
	ScenarioOther:         true,
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeScenario maps a model enum value or free text to a plan key.
// Anything unrecognised is "other".
func NormalizeScenario(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if key, ok := modelScenarios[strings.ToUpper(trimmed)]; ok {
		return key
	}

	x := strings.ToLower(trimmed)
	x = strings.NewReplacer("%20", " ", "_", " ", "-", " ").Replace(x)
	x = strings.TrimSpace(whitespaceRun.ReplaceAllString(x, " "))

	if key, ok := scenarioAliases[x]; ok {
		return key
	}

	if key := strings.ReplaceAll(x, " ", "_"); planKeys[key] {
		return key
	}

	return ScenarioOther
}
