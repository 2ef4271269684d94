// Package assistant composes per-call assistant overrides for the calling
// platform. Pure composition over already-resolved data; no CRM access.
package assistant

import (
	"fmt"

	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/internal/domain"
)

// Request carries the caller-supplied values and per-request voice fields
// from the webhook payload.
type Request struct {
	CallerName      string
	PropertyAddress string
	City            string
	State           string

	VoiceName       string
	VoiceStability  string
	VoiceSimilarity string
	VoiceStyle      string
}

// Synthesize builds the assistant override from resolved context, per-request
// fields, and environment defaults.
//
// Deal-derived address values win over caller-supplied ones; the
// caller-supplied name wins over the CRM-derived one. The opening line is
// only generated when a known address or summary exists, so the assistant
// never opens with a reference to data that does not exist.
func Synthesize(cc domain.CallContext, req Request, cfg *config.Config) domain.AssistantOverride {
	vars := map[string]string{
		"seller_first_name": sellerFirstName(cc, req),
		"property_address":  pick(dealAddress(cc), req.PropertyAddress),
		"property_city":     pick(dealCity(cc), req.City),
		"property_state":    pick(dealState(cc), req.State),
		"last_summary":      cc.Summary,
	}

	override := domain.AssistantOverride{Variables: vars}

	if vars["property_address"] != "" || cc.Summary != "" {
		override.FirstMessage = openingLine(vars["seller_first_name"], vars["property_address"])
	}

	voice := domain.VoiceSettings{
		Name:       pick(req.VoiceName, cfg.VoiceName),
		Stability:  pick(req.VoiceStability, cfg.VoiceStability),
		Similarity: pick(req.VoiceSimilarity, cfg.VoiceSimilarity),
		Style:      pick(req.VoiceStyle, cfg.VoiceStyle),
	}
	if !voice.Empty() {
		override.Voice = &voice
	}

	return override
}

// Empty returns a minimal valid override: empty variables, no opener. Used
// when the enrichment path fails and the platform still needs a 200.
func Empty() domain.AssistantOverride {
	return domain.AssistantOverride{Variables: map[string]string{}}
}

func openingLine(name, address string) string {
	switch {
	case name != "" && address != "":
		return fmt.Sprintf("Hi %s, I'm calling about your property at %s.", name, address)
	case address != "":
		return fmt.Sprintf("Hi, I'm calling about your property at %s.", address)
	case name != "":
		return fmt.Sprintf("Hi %s, I'm following up on our last conversation.", name)
	default:
		return "Hi, I'm following up on our last conversation."
	}
}

func sellerFirstName(cc domain.CallContext, req Request) string {
	if req.CallerName != "" {
		return req.CallerName
	}
	if cc.Contact != nil {
		return cc.Contact.FirstName
	}
	return ""
}

func dealAddress(cc domain.CallContext) string {
	if cc.Deal != nil {
		return cc.Deal.Address
	}
	return ""
}

func dealCity(cc domain.CallContext) string {
	if cc.Deal != nil {
		return cc.Deal.City
	}
	return ""
}

func dealState(cc domain.CallContext) string {
	if cc.Deal != nil {
		return cc.Deal.State
	}
	return ""
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
