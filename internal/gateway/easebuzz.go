package gateway

import (
	"context"
	"strings"

	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/gateway/sign"
	"github.com/eduhub/edupay/internal/models"
)

// Easebuzz is the second redirect-hash provider. Same hash discipline as
// PayU with its own credentials, form endpoint and callback field names.
type Easebuzz struct {
	cfg         config.EasebuzzConfig
	callbackURL string
}

func NewEasebuzz(cfg config.EasebuzzConfig, callbackURL string) *Easebuzz {
	return &Easebuzz{cfg: cfg, callbackURL: callbackURL}
}

func (a *Easebuzz) Name() models.GatewayName { return models.GatewayEasebuzz }

func (a *Easebuzz) ReferenceKeys() []string { return []string{"txnid", "easepayid"} }

func (a *Easebuzz) Initiate(_ context.Context, order Order) (InitiationResult, error) {
	if a.cfg.Key == "" || a.cfg.Salt == "" {
		return InitiationResult{}, errs.New(errs.KindConfig, "easebuzz key/salt not configured")
	}
	if err := order.validate(); err != nil {
		return InitiationResult{}, err
	}

	amount := FormatAmount(order.AmountMinor)
	fields := []string{a.cfg.Key, order.TransactionID, amount, order.ProductInfo, order.Customer.FirstName, order.Customer.Email}
	fields = append(fields, udfPadding...)
	fields = append(fields, a.cfg.Salt)

	return InitiationResult{Redirect: RedirectDescriptor{
		FormURL: a.cfg.FormURL,
		FormFields: map[string]string{
			"key":         a.cfg.Key,
			"txnid":       order.TransactionID,
			"amount":      amount,
			"productinfo": order.ProductInfo,
			"firstname":   order.Customer.FirstName,
			"email":       order.Customer.Email,
			"phone":       order.Customer.Phone,
			"surl":        a.callbackURL,
			"furl":        a.callbackURL,
			"hash":        sign.ChainHash(fields, "|"),
		},
	}}, nil
}

func (a *Easebuzz) NormalizeCallback(_ context.Context, payload map[string]string) (Outcome, error) {
	ref, ok := Reference(payload, a.ReferenceKeys())
	if !ok {
		return Outcome{}, errs.New(errs.KindValidation, "callback carries no transaction reference")
	}

	fields := []string{a.cfg.Salt, payload["status"]}
	fields = append(fields, udfPadding...)
	fields = append(fields, payload["email"], payload["firstname"], payload["productinfo"], payload["amount"], payload["txnid"], a.cfg.Key)

	if !sign.VerifyMAC(sign.ChainHash(fields, "|"), payload["hash"]) {
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
