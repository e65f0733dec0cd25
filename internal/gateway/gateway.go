// Package gateway defines the provider adapter contract and one adapter per
// supported payment provider. Adding a provider means adding an adapter and
// registering it; no shared code branches on provider names.
package gateway

import (
	"context"
	"fmt"

	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/models"
)

// Order is the priced, immutable view of a transaction an adapter initiates
// payment for. AmountMinor is in paise.
type Order struct {
	TransactionID string
	AmountMinor   int64
	Currency      string
	ProductInfo   string
	UserID        string
	Customer      models.CustomerContact
}

func (o Order) validate() error {
	if o.TransactionID == "" {
		return errs.New(errs.KindValidation, "order has no transaction id")
	}
	if o.AmountMinor <= 0 {
		return errs.New(errs.KindValidation, "order amount must be positive")
	}
	return nil
}

// RedirectDescriptor tells the caller how to send the buyer to the provider:
// either a plain redirect URL, or a form the UI must post.
type RedirectDescriptor struct {
	RedirectURL string            `json:"redirect_url,omitempty"`
	FormURL     string            `json:"form_url,omitempty"`
	FormFields  map[string]string `json:"form_fields,omitempty"`
}

// InitiationResult carries the redirect plus the provider-assigned order id,
// when the provider hands one out at initiation time.
type InitiationResult struct {
	Redirect        RedirectDescriptor
	ProviderOrderID string
}

// Outcome is the canonical interpretation of a provider response,
// independent of that provider's field names.
type Outcome struct {
	Reference  string
	Succeeded  bool
	RawPayload map[string]string
	Message    string
}

// Adapter is implemented once per provider.
type Adapter interface {
	Name() models.GatewayName

	// ReferenceKeys is the ordered list of payload keys this provider may
	// use for its transaction reference. Part of the adapter's contract.
	ReferenceKeys() []string

	Initiate(ctx context.Context, order Order) (InitiationResult, error)

	// NormalizeCallback interprets an inbound callback. A tampered or
	// unverifiable payload normalizes to Succeeded=false; an error return is
	// reserved for payloads that cannot be attributed at all or for
	// retryable upstream failures.
	NormalizeCallback(ctx context.Context, payload map[string]string) (Outcome, error)
}

// Inquirer is implemented by adapters whose provider offers an authoritative
// server-to-server status lookup.
type Inquirer interface {
	Inquire(ctx context.Context, reference string) (Outcome, error)
}

type Registry struct {
	adapters map[models.GatewayName]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[models.GatewayName]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

func (r *Registry) Get(name models.GatewayName) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, errs.Newf(errs.KindValidation, "unsupported payment method %q", name)
	}
	return a, nil
}

// Reference picks the first candidate key present and non-empty in payload.
func Reference(payload map[string]string, keys []string) (string, bool) {
	for _, k := range keys {
		if v := payload[k]; v != "" {
			return v, true
		}
	}
	return "", false
}

// FormatAmount renders minor units the way hosted forms expect: two decimal
// places, no grouping.
func FormatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
