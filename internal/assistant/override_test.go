package assistant

import (
	"testing"

	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_DealValuesWinOverCallerSupplied(t *testing.T) {
	cc := domain.CallContext{
		Contact: &domain.Contact{FirstName: "Dana"},
		Deal:    &domain.Deal{Address: "123 Main St", City: "Nashville", State: "TN"},
		Summary: "Single family • 123 Main St",
	}
	req := Request{
		CallerName:      "Danielle",
		PropertyAddress: "999 Wrong St",
		City:            "Memphis",
	}

	override := Synthesize(cc, req, &config.Config{})

	assert.Equal(t, "Danielle", override.Variables["seller_first_name"],
		"caller-supplied name wins over the CRM-derived one")
	assert.Equal(t, "123 Main St", override.Variables["property_address"],
		"deal-derived address wins over the caller-supplied one")
	assert.Equal(t, "Nashville", override.Variables["property_city"])
	assert.Equal(t, "TN", override.Variables["property_state"])
	assert.Equal(t, "Single family • 123 Main St", override.Variables["last_summary"])
}

func TestSynthesize_CallerSuppliedValuesPreservedWithoutDeal(t *testing.T) {
	cc := domain.CallContext{}
	req := Request{PropertyAddress: "123 Main St", City: "Nashville"}

	override := Synthesize(cc, req, &config.Config{})

	assert.Equal(t, "123 Main St", override.Variables["property_address"])
	assert.Equal(t, "Nashville", override.Variables["property_city"])
	assert.Empty(t, override.Variables["last_summary"])
}

func TestSynthesize_NoOpenerWithoutAddressOrSummary(t *testing.T) {
	override := Synthesize(domain.CallContext{}, Request{CallerName: "Sam"}, &config.Config{})

	assert.Empty(t, override.FirstMessage,
		"no opener may be generated without a known address or summary")
}

func TestSynthesize_OpenerReferencesAddress(t *testing.T) {
	cc := domain.CallContext{Deal: &domain.Deal{Address: "123 Main St"}}

	override := Synthesize(cc, Request{CallerName: "Dana"}, &config.Config{})

	require.NotEmpty(t, override.FirstMessage)
	assert.Contains(t, override.FirstMessage, "Dana")
	assert.Contains(t, override.FirstMessage, "123 Main St")
}

func TestSynthesize_VoicePrecedenceAndOmission(t *testing.T) {
	cfg := &config.Config{VoiceName: "river", VoiceStability: "0.5"}

	override := Synthesize(domain.CallContext{}, Request{VoiceName: "sage"}, cfg)
	require.NotNil(t, override.Voice)
	assert.Equal(t, "sage", override.Voice.Name, "per-request voice wins over the environment default")
	assert.Equal(t, "0.5", override.Voice.Stability)

	override = Synthesize(domain.CallContext{}, Request{}, &config.Config{})
	assert.Nil(t, override.Voice, "voice block is omitted when every parameter is empty")
}
