// Package dispatch routes named tool invocations from the calling platform
// to CRM gateway operations.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hauslink/voice-crm-bridge/internal/config"
	"github.com/hauslink/voice-crm-bridge/internal/crm"
	"github.com/hauslink/voice-crm-bridge/internal/domain"
	"github.com/hauslink/voice-crm-bridge/internal/metrics"
	"github.com/hauslink/voice-crm-bridge/internal/phone"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"go.uber.org/zap"
)

// Canonical operation names. The alias table below maps every accepted tool
// name onto one of these.
const (
	opUpsertContact    = "upsert_contact"
	opCreateDeal       = "create_deal"
	opLogNote          = "log_note"
	opScheduleFollowup = "schedule_followup"
	opAcknowledge      = "acknowledge" // not-yet-wired tools: success-shaped no-op
)

// aliases maps tool names as sent by the model to canonical operations.
// Multiple names for the same operation are a single table entry each, not
// duplicated branches.
var aliases = map[string]string{
	"upsert_contact":    opUpsertContact,
	"create_contact":    opUpsertContact,
	"update_contact":    opUpsertContact,
	"add_contact":       opUpsertContact,
	"create_deal":       opCreateDeal,
	"create_property":   opCreateDeal,
	"log_property":      opCreateDeal,
	"log_note":          opLogNote,
	"create_note":       opLogNote,
	"log_call_notes":    opLogNote,
	"save_call_notes":   opLogNote,
	"schedule_followup": opScheduleFollowup,
	"book_appointment":  opScheduleFollowup,

	// Accepted but not yet wired; acknowledged as successful no-ops on
	// purpose so the model's flow is never interrupted.
	"update_lead_status": opAcknowledge,
	"mark_do_not_call":   opAcknowledge,
	"transfer_call":      opAcknowledge,
	"send_sms":           opAcknowledge,
}

// Dispatcher executes tool-call batches against the CRM gateway. One failing
// call never prevents the remaining calls in the batch from executing.
type Dispatcher struct {
	gateway crm.Gateway
	cfg     *config.Config
}

// New creates a dispatcher.
func New(gateway crm.Gateway, cfg *config.Config) *Dispatcher {
	return &Dispatcher{gateway: gateway, cfg: cfg}
}

// Dispatch executes each call in input order and returns one result per
// call, tagged with its originating call id. Per-call failures (including
// panics) are converted into error-shaped results.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []domain.ToolCall) []domain.ToolCallResult {
	results := make([]domain.ToolCallResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, d.dispatchOne(ctx, call))
	}
	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, call domain.ToolCall) (result domain.ToolCallResult) {
	result.ToolCallID = call.ID

	defer func() {
		if r := recover(); r != nil {
			metrics.ToolCallsDispatched.WithLabelValues("error").Inc()
			logger.Base().Error("tool call panicked",
				zap.String("tool", call.Name), zap.Any("panic", r))
			result.Result = ""
			result.Error = fmt.Sprintf("tool %s failed", call.Name)
		}
	}()

	op, known := aliases[call.Name]
	if !known {
		metrics.ToolCallsDispatched.WithLabelValues("ignored").Inc()
		logger.Base().Warn("unknown tool name, ignoring", zap.String("tool", call.Name))
		result.Result = fmt.Sprintf("ignored: unknown tool %q", call.Name)
		return result
	}

	args, err := parseArgs(call.Arguments)
	if err != nil {
		metrics.ToolCallsDispatched.WithLabelValues("error").Inc()
		result.Error = fmt.Sprintf("invalid arguments: %v", err)
		return result
	}

	var out string
	switch op {
	case opUpsertContact:
		out, err = d.upsertContact(ctx, args)
	case opCreateDeal:
		out, err = d.createDeal(ctx, args)
	case opLogNote:
		out, err = d.logNote(ctx, args)
	case opScheduleFollowup:
		out = d.scheduleFollowup()
	case opAcknowledge:
		out = fmt.Sprintf("acknowledged: %s", call.Name)
	}

	if err != nil {
		metrics.ToolCallsDispatched.WithLabelValues("error").Inc()
		logger.Base().Warn("tool call failed",
			zap.String("tool", call.Name), zap.Error(err))
		result.Error = err.Error()
		return result
	}

	metrics.ToolCallsDispatched.WithLabelValues("ok").Inc()
	result.Result = out
	return result
}

func (d *Dispatcher) upsertContact(ctx context.Context, args map[string]string) (string, error) {
	email := args["email"]
	rawPhone := args["phone"]
	if email == "" && rawPhone == "" {
		return "", fmt.Errorf("contact requires an email or phone")
	}

	props := map[string]string{}
	copyArg(props, args, "firstname", "first_name")
	copyArg(props, args, "lastname", "last_name")
	copyArg(props, args, "address", "address")
	copyArg(props, args, "city", "city")
	copyArg(props, args, "state", "state")
	copyArg(props, args, "zip", "zip")
	if email != "" {
		props["email"] = email
	}
	if rawPhone != "" {
		props["phone"] = phone.Normalize(rawPhone)
	}
	if d.cfg.ContactOwner != "" {
		props["hubspot_owner_id"] = d.cfg.ContactOwner
	}

	res, err := d.gateway.UpsertContact(ctx, props)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("contact %s (%s)", res.Outcome, res.ID), nil
}

func (d *Dispatcher) createDeal(ctx context.Context, args map[string]string) (string, error) {
	props := map[string]string{
		"pipeline":  d.cfg.DealPipeline,
		"dealstage": d.cfg.DealStage,
	}
	copyArg(props, args, "dealname", "name")
	copyArg(props, args, "amount", "amount")
	copyArg(props, args, "property_address", "property_address")
	copyArg(props, args, "property_city", "city")
	copyArg(props, args, "property_state", "state")
	copyArg(props, args, "property_zip", "zip")
	copyArg(props, args, "property_type", "property_type")
	copyArg(props, args, "asking_price", "asking_price")
	copyArg(props, args, "timeline", "timeline")
	copyArg(props, args, "motivation", "motivation")

	if props["dealname"] == "" {
		if addr := args["property_address"]; addr != "" {
			props["dealname"] = addr
		} else {
			props["dealname"] = "Inbound seller lead"
		}
	}

	// Deal creation is unconditional; only the association needs a contact.
	contactID := args["contact_id"]
	if contactID == "" && args["email"] != "" {
		contactID, _ = d.gateway.SearchContactByEmail(ctx, args["email"])
	}

	id, err := d.gateway.CreateDeal(ctx, props, contactID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("deal created (%s)", id), nil
}

func (d *Dispatcher) logNote(ctx context.Context, args map[string]string) (string, error) {
	body := args["note"]
	if body == "" {
		body = args["body"]
	}
	if body == "" {
		body = args["summary"]
	}
	if body == "" {
		return "", fmt.Errorf("note requires a body")
	}

	contactID := args["contact_id"]
	if contactID == "" && args["phone"] != "" {
		if found := d.gateway.SearchContactsByPhone(ctx, args["phone"]); len(found) > 0 {
			contactID = found[0].ID
		}
	}

	id, err := d.gateway.CreateNote(ctx, body, contactID, args["deal_id"])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("note logged (%s)", id), nil
}

func (d *Dispatcher) scheduleFollowup() string {
	if d.cfg.SchedulingURL != "" {
		return fmt.Sprintf("booking link: %s", d.cfg.SchedulingURL)
	}
	return "a team member will follow up to schedule"
}

// parseArgs flattens a JSON argument object into strings. The model sends
// arguments either as an object or as a JSON-encoded string of one.
func parseArgs(raw string) (map[string]string, error) {
	args := map[string]string{}
	if raw == "" {
		return args, nil
	}

	var generic map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		// Double-encoded arguments: a JSON string containing the object.
		var inner string
		if err2 := json.Unmarshal([]byte(raw), &inner); err2 != nil {
			return nil, err
		}
		if err2 := json.Unmarshal([]byte(inner), &generic); err2 != nil {
			return nil, err2
		}
	}

	for k, v := range generic {
		switch val := v.(type) {
		case string:
			args[k] = val
		case float64:
			args[k] = formatNumber(val)
		case bool:
			args[k] = fmt.Sprintf("%t", val)
		}
	}
	return args, nil
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// copyArg copies args[from] into props[to] when present and non-empty.
func copyArg(props, args map[string]string, to, from string) {
	if v := args[from]; v != "" {
		props[to] = v
	}
}
