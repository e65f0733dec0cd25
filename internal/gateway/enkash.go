package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/gateway/sign"
	"github.com/eduhub/edupay/internal/models"
)

// Enkash drives the token-based REST flow: acquire a bearer token, create a
// hosted-checkout order, hand the payment link back. Its environments
// disagree on whether the Authorization header wants a "Bearer " prefix, so
// order creation walks a declared ladder of header variants and retries on
// the provider's invalid-token code.
type Enkash struct {
	cfg         config.EnkashConfig
	callbackURL string
	client      httpDoer
}

func NewEnkash(cfg config.EnkashConfig, callbackURL string, client *http.Client) *Enkash {
	return &Enkash{cfg: cfg, callbackURL: callbackURL, client: client}
}

func (a *Enkash) Name() models.GatewayName { return models.GatewayEnkash }

func (a *Enkash) ReferenceKeys() []string { return []string{"order_id", "merchant_order_id"} }

func (a *Enkash) Initiate(ctx context.Context, order Order) (InitiationResult, error) {
	if a.cfg.Key == "" || a.cfg.Secret == "" {
		return InitiationResult{}, errs.New(errs.KindConfig, "enkash credentials not configured")
	}
	if err := order.validate(); err != nil {
		return InitiationResult{}, err
	}

	token, err := a.fetchToken(ctx)
	if err != nil {
		return InitiationResult{}, err
	}

	body := map[string]any{
		"merchant_order_id": order.TransactionID,
		"amount":            FormatAmount(order.AmountMinor),
		"currency":          order.Currency,
		"customer_email":    order.Customer.Email,
		"customer_phone":    order.Customer.Phone,
		"return_url":        a.callbackURL,
	}

	resp, err := a.createOrder(ctx, token, body)
	if err != nil {
		return InitiationResult{}, err
	}

	link := str(resp, "payment_link")
	if link == "" {
		return InitiationResult{}, errs.New(errs.KindUpstream, "enkash: response carries no payment link")
	}
	return InitiationResult{
		Redirect:        RedirectDescriptor{RedirectURL: link},
		ProviderOrderID: str(resp, "order_id"),
	}, nil
}

func (a *Enkash) fetchToken(ctx context.Context) (string, error) {
	status, resp, err := doJSON(ctx, a.client, http.MethodPost, a.cfg.BaseURL+"/auth/token",
		nil, map[string]string{"key": a.cfg.Key, "secret": a.cfg.Secret})
	if err != nil {
		return "", err
	}
	token := str(resp, "access_token")
	if status < 200 || status >= 300 || token == "" {
		msg := str(resp, "message")
		if msg == "" {
			msg = "token acquisition rejected"
		}
		return "", errs.Newf(errs.KindUpstream, "enkash: %s", msg)
	}
	return token, nil
}

// createOrder attempts each authorization variant in order; the first that
// is not rejected as an invalid token wins.
func (a *Enkash) createOrder(ctx context.Context, token string, body map[string]any) (map[string]any, error) {
	variants := []string{"Bearer " + token, token}

	var lastErr error
	for _, auth := range variants {
		status, resp, err := doJSON(ctx, a.client, http.MethodPost, a.cfg.BaseURL+"/orders",
			map[string]string{"Authorization": auth}, body)
		if err != nil {
			return nil, err
		}
		if invalidToken(status, resp) {
			lastErr = errs.Newf(errs.KindUpstream, "enkash: %s", str(resp, "message"))
			continue
		}
		if status < 200 || status >= 300 {
			msg := str(resp, "message")
			if msg == "" {
				msg = "order creation rejected"
			}
			return nil, errs.Newf(errs.KindUpstream, "enkash: %s", msg)
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = errs.New(errs.KindUpstream, "enkash: all authorization variants rejected")
	}
	return nil, lastErr
}

func invalidToken(status int, resp map[string]any) bool {
	return status == http.StatusUnauthorized || str(resp, "code") == "INVALID_TOKEN"
}

func (a *Enkash) NormalizeCallback(_ context.Context, payload map[string]string) (Outcome, error) {
	ref, ok := Reference(payload, a.ReferenceKeys())
	if !ok {
		return Outcome{}, errs.New(errs.KindValidation, "callback carries no transaction reference")
	}

	base := strings.Join([]string{payload["order_id"], payload["amount"], payload["status"]}, "|")
	if !sign.VerifyMAC(sign.HMACSHA256(base, a.cfg.Secret), payload["signature"]) {
		return Outcome{
			Reference:  ref,
			Succeeded:  false,
			RawPayload: payload,
			Message:    "callback signature mismatch",
		}, nil
	}

	status := payload["status"]
	succeeded := strings.EqualFold(status, "SUCCESS") || strings.EqualFold(status, "PAID")
	return Outcome{Reference: ref, Succeeded: succeeded, RawPayload: payload, Message: status}, nil
}
