// Package resolver turns a caller's phone/address hints into a CallContext:
// the most relevant CRM contact and deal plus a compact one-line summary.
package resolver

import (
	"context"
	"strings"

	"github.com/hauslink/voice-crm-bridge/internal/crm"
	"github.com/hauslink/voice-crm-bridge/internal/domain"
	"github.com/hauslink/voice-crm-bridge/internal/phone"
	"github.com/hauslink/voice-crm-bridge/pkg/logger"
	"go.uber.org/zap"
)

const summarySeparator = " • "

// Input carries the caller hints from the webhook payload. All fields are
// optional.
type Input struct {
	Phone           string
	PropertyAddress string
	City            string
	State           string
	CallerName      string
}

// Resolver resolves call context against the CRM gateway. The lookups are
// sequential on purpose: the deal fetch is conditional on a contact match,
// and the address fallback only runs when no deal was found.
type Resolver struct {
	gateway crm.Gateway
}

// New creates a resolver backed by the given gateway.
func New(gateway crm.Gateway) *Resolver {
	return &Resolver{gateway: gateway}
}

// Resolve finds the most relevant contact and deal for the caller and builds
// the summary. Any lookup failure degrades to "no contact / no deal"; Resolve
// never fails.
func (r *Resolver) Resolve(ctx context.Context, in Input) domain.CallContext {
	var cc domain.CallContext

	normalized := phone.Normalize(in.Phone)
	if normalized != "" {
		contacts := r.gateway.SearchContactsByPhone(ctx, normalized)
		if len(contacts) > 0 {
			// First result is canonical; the CRM's own ordering breaks ties.
			contact := contacts[0]
			cc.Contact = &contact
		}
	}

	if cc.Contact != nil {
		deals := r.gateway.GetDealsForContact(ctx, cc.Contact.ID)
		if len(deals) > 0 {
			deal := deals[0]
			cc.Deal = &deal
		}
	}

	if cc.Deal == nil && in.PropertyAddress != "" {
		deals := r.gateway.SearchDealsByAddress(ctx, in.PropertyAddress)
		if len(deals) > 0 {
			deal := deals[0]
			cc.Deal = &deal
		}
	}

	cc.Summary = BuildSummary(cc.Contact, cc.Deal)

	logger.Base().Debug("call context resolved",
		zap.Bool("contact_found", cc.Contact != nil),
		zap.Bool("deal_found", cc.Deal != nil),
		zap.String("phone", normalized))
	return cc
}

// BuildSummary reduces the resolved records into a short natural-language
// line. Fields are joined in fixed order; missing fields are omitted, never
// rendered as blanks.
func BuildSummary(contact *domain.Contact, deal *domain.Deal) string {
	var parts []string

	if deal != nil {
		if deal.PropertyType != "" {
			parts = append(parts, deal.PropertyType)
		}
		if line := addressLine(deal.Address, deal.City, deal.State); line != "" {
			parts = append(parts, line)
		}
		if price := firstNonEmpty(deal.AskingPrice, deal.Amount); price != "" {
			parts = append(parts, "Asking $"+price)
		}
		if deal.Timeline != "" {
			parts = append(parts, "Timing: "+deal.Timeline)
		}
		if deal.Motivation != "" {
			parts = append(parts, "Motivation: "+deal.Motivation)
		}
	}

	if contact != nil {
		if name := contact.FullName(); name != "" {
			parts = append(parts, "Contact: "+name)
		}
	}

	return strings.Join(parts, summarySeparator)
}

func addressLine(address, city, state string) string {
	var parts []string
	if address != "" {
		parts = append(parts, address)
	}
	if city != "" {
		parts = append(parts, city)
	}
	if state != "" {
		parts = append(parts, state)
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
