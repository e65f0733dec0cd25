package gateway

import (
	"context"
	"strings"

	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/gateway/sign"
	"github.com/eduhub/edupay/internal/models"
)

// udfPadding fills the ten unused user-defined fields both redirect-hash
// providers require in their hash sequences. Positions matter even when
// empty.
var udfPadding = make([]string, 10)

// PayU implements the redirect-hash flow: initiation returns a signed form
// the UI posts to the hosted page, and the callback is a browser redirect
// whose fields are only trusted after the reverse hash checks out.
type PayU struct {
	cfg         config.PayUConfig
	callbackURL string
}

func NewPayU(cfg config.PayUConfig, callbackURL string) *PayU {
	return &PayU{cfg: cfg, callbackURL: callbackURL}
}

func (a *PayU) Name() models.GatewayName { return models.GatewayPayU }

func (a *PayU) ReferenceKeys() []string { return []string{"txnid", "mihpayid"} }

func (a *PayU) Initiate(_ context.Context, order Order) (InitiationResult, error) {
	if a.cfg.Key == "" || a.cfg.Salt == "" {
		return InitiationResult{}, errs.New(errs.KindConfig, "payu key/salt not configured")
	}
	if err := order.validate(); err != nil {
		return InitiationResult{}, err
	}

	amount := FormatAmount(order.AmountMinor)
	hash := sign.ChainHash(a.requestFields(order, amount), "|")

	return InitiationResult{Redirect: RedirectDescriptor{
		FormURL: a.cfg.FormURL,
		FormFields: map[string]string{
			"key":              a.cfg.Key,
			"txnid":            order.TransactionID,
			"amount":           amount,
			"productinfo":      order.ProductInfo,
			"firstname":        order.Customer.FirstName,
			"email":            order.Customer.Email,
			"phone":            order.Customer.Phone,
			"surl":             a.callbackURL,
			"furl":             a.callbackURL,
			"hash":             hash,
			"service_provider": "payu_paisa",
		},
	}}, nil
}

func (a *PayU) NormalizeCallback(_ context.Context, payload map[string]string) (Outcome, error) {
	ref, ok := Reference(payload, a.ReferenceKeys())
	if !ok {
		return Outcome{}, errs.New(errs.KindValidation, "callback carries no transaction reference")
	}

	computed := sign.ChainHash(a.responseFields(payload), "|")
	if !sign.VerifyMAC(computed, payload["hash"]) {
		return Outcome{
			Reference:  ref,
			Succeeded:  false,
			RawPayload: payload,
			Message:    "callback signature mismatch",
		}, nil
	}

	succeeded := strings.EqualFold(payload["status"], "success")
	msg := payload["error_Message"]
	if msg == "" {
		msg = payload["status"]
	}
	return Outcome{Reference: ref, Succeeded: succeeded, RawPayload: payload, Message: msg}, nil
}

// requestFields is PayU's declared initiation sequence:
// key|txnid|amount|productinfo|firstname|email|<10 udf slots>|salt.
func (a *PayU) requestFields(o Order, amount string) []string {
	f := []string{a.cfg.Key, o.TransactionID, amount, o.ProductInfo, o.Customer.FirstName, o.Customer.Email}
	f = append(f, udfPadding...)
	return append(f, a.cfg.Salt)
}

// responseFields is the mirrored sequence PayU signs redirects with:
// salt|status|<10 udf slots>|email|firstname|productinfo|amount|txnid|key.
func (a *PayU) responseFields(p map[string]string) []string {
	f := []string{a.cfg.Salt, p["status"]}
	f = append(f, udfPadding...)
	return append(f, p["email"], p["firstname"], p["productinfo"], p["amount"], p["txnid"], a.cfg.Key)
}
