package models

import (
	"errors"
	"strings"
	"time"
)

type GatewayName string

const (
	GatewayPayU     GatewayName = "payu"
	GatewayEasebuzz GatewayName = "easebuzz"
	GatewayCashfree GatewayName = "cashfree"
	GatewayEnkash   GatewayName = "enkash"
	GatewayVegaah   GatewayName = "vegaah"
)

func ParseGateway(s string) (GatewayName, error) {
	switch g := GatewayName(strings.ToLower(strings.TrimSpace(s))); g {
	case GatewayPayU, GatewayEasebuzz, GatewayCashfree, GatewayEnkash, GatewayVegaah:
		return g, nil
	default:
		return "", errors.New("unsupported payment method: " + s)
	}
}

type TransactionStatus string

const (
	TxnPending TransactionStatus = "pending"
	TxnSuccess TransactionStatus = "success"
	TxnFailed  TransactionStatus = "failed"
)

// Terminal reports whether no further status transition is permitted.
func (s TransactionStatus) Terminal() bool { return s == TxnSuccess || s == TxnFailed }

// LineItem is the price snapshot of one cart entry at the moment the
// transaction was created. Unit prices are in minor units (paise).
type LineItem struct {
	CourseID  string `json:"course_id"`
	UnitPrice int64  `json:"unit_price"`
}

type CustomerContact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (c CustomerContact) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return errors.New("first name required")
	}
	if !strings.Contains(c.Email, "@") {
		return errors.New("invalid email")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return errors.New("phone required")
	}
	return nil
}

func (c CustomerContact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Transaction is one attempted checkout. Items, total and contact are frozen
// at creation; only Status, ProviderOrderID and GatewayResponse change after,
// and Status changes exactly once.
type Transaction struct {
	ID              string            `json:"transaction_id"`
	ProviderOrderID string            `json:"provider_order_id,omitempty"`
	UserID          string            `json:"user_id"`
	Items           []LineItem        `json:"items"`
	TotalAmount     int64             `json:"total_amount"`
	Currency        string            `json:"currency"`
	Gateway         GatewayName       `json:"gateway"`
	Status          TransactionStatus `json:"status"`
	GatewayResponse map[string]string `json:"gateway_response,omitempty"`
	Contact         CustomerContact   `json:"customer_details"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
