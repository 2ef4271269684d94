package domain

// Contact is a CRM contact record. Only the properties the bridge consumes are
// mapped; everything else stays on the CRM side. Contacts are never cached
// beyond the request that fetched them.
type Contact struct {
	ID        string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

// FullName joins first and last name, skipping empty parts.
func (c Contact) FullName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

// Deal is a CRM deal record representing a property opportunity.
type Deal struct {
	ID           string `json:"id"`
	Name         string `json:"dealname"`
	Amount       string `json:"amount"`
	Address      string `json:"property_address"`
	City         string `json:"property_city"`
	State        string `json:"property_state"`
	Zip          string `json:"property_zip"`
	PropertyType string `json:"property_type"`
	AskingPrice  string `json:"asking_price"`
	Timeline     string `json:"timeline"`
	Motivation   string `json:"motivation"`
}

// Note is a CRM note created by the bridge to log call outcomes. Write-only
// from the bridge's perspective.
type Note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// CallContext is the resolved contact/deal pair for one inbound webhook.
// Constructed fresh per request and discarded with the response; never shared
// across requests.
type CallContext struct {
	Contact *Contact
	Deal    *Deal
	Summary string
}

// VoiceSettings are the optional voice parameters returned to the calling
// platform. Per-request values win over environment defaults.
type VoiceSettings struct {
	Name       string `json:"voiceName,omitempty"`
	Stability  string `json:"stability,omitempty"`
	Similarity string `json:"similarityBoost,omitempty"`
	Style      string `json:"style,omitempty"`
}

// Empty reports whether no voice parameter is set.
func (v VoiceSettings) Empty() bool {
	return v.Name == "" && v.Stability == "" && v.Similarity == "" && v.Style == ""
}

// AssistantOverride is the per-call configuration payload returned to the
// calling platform.
type AssistantOverride struct {
	Variables    map[string]string `json:"variableValues"`
	FirstMessage string            `json:"firstMessage,omitempty"`
	Voice        *VoiceSettings    `json:"voice,omitempty"`
}

// Lead status values. StatusOwnerVerified is the only status that records the
// verifying phone number; other statuses retain whatever verifiedBy was set
// before.
const (
	StatusOwnerVerified     = "owner_verified"
	StatusCallbackRequested = "callback_requested"
	StatusWrongNumber       = "wrong_number"
	StatusDoNotCall         = "do_not_call"
)

// LeadStatusEntry tracks the verification state of a lead across calls.
type LeadStatusEntry struct {
	LeadID     string `json:"leadId"`
	Status     string `json:"status"`
	VerifiedBy string `json:"verifiedBy,omitempty"`
}

// ToolCall is a named action requested by the calling platform's model.
// Arguments carries the raw JSON argument object as received.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCallResult is the per-call outcome returned to the calling platform.
// Results are always produced in input order, one per call.
type ToolCallResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}
