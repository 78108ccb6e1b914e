package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefault(t *testing.T) {
	dir, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, dir.LastVerified)
	assert.Len(t, dir.Hotlines, 6)
	assert.Equal(t, "997", dir.Hotlines[0].Value)
	assert.NotEmpty(t, dir.Categories)

	for key := range planKeys {
		plan := dir.Plans[key]
		require.NotNil(t, plan, "missing plan %s", key)
		assert.Equal(t, key, plan.Key)
		assert.NotEmpty(t, plan.DoNow)
		assert.NotEmpty(t, plan.Contacts)
		assert.NotEmpty(t, plan.Caveat, "plan %s should inherit the shared caveat", key)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.yaml")
	doc := `
last_verified: "2030-01-01"
hotlines:
  - {name: Test line, type: phone, value: "123"}
plans:
  other:
    title: Other
    contacts:
      - {label: Test line, type: phone, value: "123"}
    caveat: own caveat
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	dir, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2030-01-01", dir.LastVerified)
	assert.Equal(t, "own caveat", dir.PlanFor("money_moved").Caveat)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("hotlines: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("hotlines: []\n"))
	assert.ErrorContains(t, err, "no hotlines")

	_, err = Parse([]byte("hotlines:\n  - {name: a, type: phone, value: '1'}\nplans: {}\n"))
	assert.ErrorContains(t, err, `"other"`)
}

func TestNormalizeScenario(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"BANK_TRANSFER", ScenarioMoneyMoved},
		{"unauthorised_transaction", ScenarioMoneyMoved},
		{"COURIER_PARCEL", ScenarioCourier},
		{"JOB_SCAM", ScenarioJob},
		{"OTP_MALWARE", ScenarioOTPPassword},
		{"MARKETPLACE", ScenarioAskedToPay},
		{"Money%20Moved", ScenarioMoneyMoved},
		{"  asked-to-pay ", ScenarioAskedToPay},
		{"J&T", ScenarioCourier},
		{"bank   officer", ScenarioImpersonation},
		{"otp_password", ScenarioOTPPassword},
		{"romance", ScenarioRomance},
		{"tinder", ScenarioRomance},
		{"something else entirely", ScenarioOther},
		{"", ScenarioOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeScenario(tt.raw))
		})
	}
}

func TestDirectory_PlanForAndChannels(t *testing.T) {
	dir := MustLoadDefault()

	assert.Equal(t, "money_moved", dir.PlanFor("money_moved").Key)
	assert.Equal(t, "other", dir.PlanFor("no-such-plan").Key)

	channels := dir.ChannelsFor("BANK_TRANSFER")
	require.Len(t, channels, 2)
	assert.Equal(t, "NSRC", channels[0].Label)

	// Returned slice must not alias the directory
	channels[0].Label = "changed"
	assert.Equal(t, "NSRC", dir.PlanFor("money_moved").Contacts[0].Label)
}
