package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/models"
)

// Cashfree creates orders over REST and treats callbacks as hints only: the
// server-to-server order inquiry is the source of truth, with the callback's
// own fields used solely when the inquiry call itself fails.
type Cashfree struct {
	cfg         config.CashfreeConfig
	callbackURL string
	client      httpDoer
}

func NewCashfree(cfg config.CashfreeConfig, callbackURL string, client *http.Client) *Cashfree {
	return &Cashfree{cfg: cfg, callbackURL: callbackURL, client: client}
}

func (a *Cashfree) Name() models.GatewayName { return models.GatewayCashfree }

func (a *Cashfree) ReferenceKeys() []string { return []string{"order_id", "orderId", "cf_order_id"} }

func (a *Cashfree) headers() map[string]string {
	return map[string]string{
		"x-client-id":     a.cfg.AppID,
		"x-client-secret": a.cfg.Secret,
		"x-api-version":   a.cfg.APIVersion,
	}
}

func (a *Cashfree) Initiate(ctx context.Context, order Order) (InitiationResult, error) {
	if a.cfg.AppID == "" || a.cfg.Secret == "" {
		return InitiationResult{}, errs.New(errs.KindConfig, "cashfree credentials not configured")
	}
	if err := order.validate(); err != nil {
		return InitiationResult{}, err
	}

	body := map[string]any{
		"order_id":       order.TransactionID,
		"order_amount":   FormatAmount(order.AmountMinor),
		"order_currency": order.Currency,
		"customer_details": map[string]string{
			"customer_id":    order.UserID,
			"customer_email": order.Customer.Email,
			"customer_phone": order.Customer.Phone,
			"customer_name":  order.Customer.FullName(),
		},
		"order_meta": map[string]string{
			"return_url": a.callbackURL + "?order_id={order_id}",
		},
	}

	status, resp, err := doJSON(ctx, a.client, http.MethodPost, a.cfg.BaseURL+"/orders", a.headers(), body)
	if err != nil {
		return InitiationResult{}, err
	}
	session := str(resp, "payment_session_id")
	if status < 200 || status >= 300 || session == "" {
		msg := str(resp, "message")
		if msg == "" {
			msg = "order creation rejected"
		}
		return InitiationResult{}, errs.Newf(errs.KindUpstream, "cashfree: %s", msg)
	}

	link := str(resp, "payment_link")
	if link == "" {
		link = "https://payments.cashfree.com/checkouts/v1/mobile-checkout/" + session
	}
	return InitiationResult{
		Redirect:        RedirectDescriptor{RedirectURL: link},
		ProviderOrderID: str(resp, "cf_order_id"),
	}, nil
}

func (a *Cashfree) NormalizeCallback(ctx context.Context, payload map[string]string) (Outcome, error) {
	ref, ok := Reference(payload, a.ReferenceKeys())
	if !ok {
		return Outcome{}, errs.New(errs.KindValidation, "callback carries no transaction reference")
	}

	// The redirect's status fields are unauthenticated; ask the provider.
	outcome, err := a.Inquire(ctx, ref)
	if err == nil {
		return outcome, nil
	}

	// Inquiry down: fall back to the hint, a weaker guarantee. With no
	// status field at all there is nothing safe to conclude; surface the
	// inquiry error so the caller retries later.
	hint := payload["order_status"]
	if hint == "" {
		hint = payload["txStatus"]
	}
	if hint == "" {
		return Outcome{}, err
	}
	succeeded := strings.EqualFold(hint, "PAID") || strings.EqualFold(hint, "SUCCESS")
	return Outcome{Reference: ref, Succeeded: succeeded, RawPayload: payload, Message: hint}, nil
}

// Inquire fetches the authoritative order status.
func (a *Cashfree) Inquire(ctx context.Context, reference string) (Outcome, error) {
	if a.cfg.AppID == "" || a.cfg.Secret == "" {
		return Outcome{}, errs.New(errs.KindConfig, "cashfree credentials not configured")
	}
	status, resp, err := doJSON(ctx, a.client, http.MethodGet, a.cfg.BaseURL+"/orders/"+reference, a.headers(), nil)
	if err != nil {
		return Outcome{}, err
	}
	if status < 200 || status >= 300 {
		msg := str(resp, "message")
		if msg == "" {
			msg = "order lookup rejected"
		}
		return Outcome{}, errs.Newf(errs.KindUpstream, "cashfree: %s", msg)
	}

	orderStatus := str(resp, "order_status")
	return Outcome{
		Reference:  str(resp, "order_id"),
		Succeeded:  strings.EqualFold(orderStatus, "PAID"),
		RawPayload: flatten(resp),
		Message:    orderStatus,
	}, nil
}

// flatten keeps the scalar top-level fields of a provider response for the
// audit payload; nested objects are dropped, not flattened recursively.
func flatten(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k := range m {
		if v := str(m, k); v != "" {
			out[k] = v
		}
	}
	return out
}
