package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/gateway/sign"
	"github.com/eduhub/edupay/internal/models"
)

// Vegaah exchanges encrypted blobs in both directions: the initiation
// request and response bodies and the callback payload are AES-256-CBC under
// the merchant key, with an HMAC signature inside the plaintext. A payload
// that does not decrypt or does not verify is treated as failed, never
// retried.
type Vegaah struct {
	cfg         config.VegaahConfig
	callbackURL string
	client      httpDoer
}

func NewVegaah(cfg config.VegaahConfig, callbackURL string, client *http.Client) *Vegaah {
	return &Vegaah{cfg: cfg, callbackURL: callbackURL, client: client}
}

func (a *Vegaah) Name() models.GatewayName { return models.GatewayVegaah }

func (a *Vegaah) ReferenceKeys() []string { return []string{"order_id", "orderId"} }

// signatureBase is Vegaah's declared signing sequence: orderId|amount|tail,
// where tail is the currency on requests and the status on callbacks.
func (a *Vegaah) signatureBase(orderID, amount, tail string) string {
	return strings.Join([]string{orderID, amount, tail}, "|")
}

func (a *Vegaah) Initiate(ctx context.Context, order Order) (InitiationResult, error) {
	if a.cfg.MerchantKey == "" {
		return InitiationResult{}, errs.New(errs.KindConfig, "vegaah merchant key not configured")
	}
	if err := order.validate(); err != nil {
		return InitiationResult{}, err
	}

	amount := FormatAmount(order.AmountMinor)
	inner := map[string]string{
		"order_id":       order.TransactionID,
		"amount":         amount,
		"currency":       order.Currency,
		"customer_email": order.Customer.Email,
		"customer_phone": order.Customer.Phone,
		"return_url":     a.callbackURL,
		"signature":      sign.HMACSHA256(a.signatureBase(order.TransactionID, amount, order.Currency), a.cfg.MerchantKey),
	}
	plain, err := json.Marshal(inner)
	if err != nil {
		return InitiationResult{}, err
	}
	sealed, err := sign.Seal(plain, a.cfg.MerchantKey)
	if err != nil {
		return InitiationResult{}, errs.Wrap(errs.KindConfig, "vegaah: sealing pay request", err)
	}

	status, resp, err := doJSON(ctx, a.client, http.MethodPost, a.cfg.BaseURL+"/pay-request",
		nil, map[string]string{"data": sealed})
	if err != nil {
		return InitiationResult{}, err
	}
	if status < 200 || status >= 300 {
		msg := str(resp, "message")
		if msg == "" {
			msg = "pay request rejected"
		}
		return InitiationResult{}, errs.Newf(errs.KindUpstream, "vegaah: %s", msg)
	}

	opened, err := sign.Open(str(resp, "data"), a.cfg.MerchantKey)
	if err != nil {
		return InitiationResult{}, errs.Wrap(errs.KindUpstream, "vegaah: response did not decrypt", err)
	}
	var body struct {
		PaymentURL string `json:"payment_url"`
		OrderRef   string `json:"order_ref"`
	}
	if err := json.Unmarshal(opened, &body); err != nil || body.PaymentURL == "" {
		return InitiationResult{}, errs.New(errs.KindUpstream, "vegaah: response carries no payment url")
	}
	return InitiationResult{
		Redirect:        RedirectDescriptor{RedirectURL: body.PaymentURL},
		ProviderOrderID: body.OrderRef,
	}, nil
}

func (a *Vegaah) NormalizeCallback(_ context.Context, payload map[string]string) (Outcome, error) {
	ref, _ := Reference(payload, a.ReferenceKeys())

	failed := func(msg string) (Outcome, error) {
		return Outcome{Reference: ref, Succeeded: false, RawPayload: payload, Message: msg}, nil
	}

	opened, err := sign.Open(payload["data"], a.cfg.MerchantKey)
	if err != nil {
		return failed("payload did not decrypt")
	}
	var inner map[string]string
	if err := json.Unmarshal(opened, &inner); err != nil {
		return failed("decrypted payload is not valid JSON")
	}

	if inner["order_id"] != "" {
		ref = inner["order_id"]
	}
	if ref == "" {
		return Outcome{}, errs.New(errs.KindValidation, "callback carries no transaction reference")
	}

	base := a.signatureBase(inner["order_id"], inner["amount"], inner["status"])
	if !sign.VerifyMAC(sign.HMACSHA256(base, a.cfg.MerchantKey), inner["signature"]) {
		out, _ := failed("callback signature mismatch")
		out.Reference = ref
		return out, nil
	}

	status := inner["status"]
	succeeded := strings.EqualFold(status, "PAID") || strings.EqualFold(status, "SUCCESS")
	raw := map[string]string{}
	for k, v := range inner {
		raw[k] = v
	}
	return Outcome{Reference: ref, Succeeded: succeeded, RawPayload: raw, Message: status}, nil
}
