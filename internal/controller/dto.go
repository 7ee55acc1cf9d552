package controller

import (
	"encoding/json"

	app "github.com/cassiomorais/purchases/internal/application/purchase"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, validation tags).
// Controllers convert these to application commands before calling business logic.

// InitItemRequest describes one charge line of an init request.
type InitItemRequest struct {
	BundleID        string  `json:"bundle_id" validate:"required"`
	AddonID         string  `json:"addon_id"`
	SiteID          string  `json:"site_id" validate:"required"`
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	TaxAmount       float64 `json:"tax_amount" validate:"gte=0"`
	IsTrial         bool    `json:"is_trial"`
	RebillAmount    float64 `json:"rebill_amount" validate:"gte=0"`
	RebillFrequency int     `json:"rebill_frequency" validate:"gte=0"`
}

// InitPurchaseRequest holds the input for starting a purchase session.
type InitPurchaseRequest struct {
	EntrySiteID    string            `json:"entry_site_id" validate:"required"`
	Currency       string            `json:"currency" validate:"required,len=3"`
	PublicKeyIndex int               `json:"public_key_index" validate:"gte=0"`
	MainItem       InitItemRequest   `json:"main_item" validate:"required"`
	CrossSells     []InitItemRequest `json:"cross_sells" validate:"dive"`
	User           UserRequest       `json:"user" validate:"required"`
	RedirectURL    string            `json:"redirect_url" validate:"omitempty,url"`
	PostbackURL    string            `json:"postback_url" validate:"omitempty,url"`
	TrafficSource  string            `json:"traffic_source"`
	ExistingMember bool              `json:"existing_member"`
}

// UserRequest holds the purchaser fields of an init request.
type UserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Country   string `json:"country" validate:"omitempty,len=2"`
	Zip       string `json:"zip"`
	IPAddress string `json:"ip_address" validate:"omitempty,ip"`
	Username  string `json:"username"`
}

// ProcessRequest holds the input for settling a purchase. Exactly one of
// card or template must be present.
type ProcessRequest struct {
	CardToken    string `json:"card_token"`
	CardBin      string `json:"card_bin" validate:"omitempty,len=6"`
	CardLastFour string `json:"card_last_four" validate:"omitempty,len=4"`
	TemplateID   string `json:"template_id"`
}

// ThreeDCompleteRequest holds the 3-D Secure completion input.
type ThreeDCompleteRequest struct {
	TransactionID       string `json:"transaction_id" validate:"required,uuid"`
	DeviceDetectionOnly bool   `json:"device_detection_only"`
}

// PostbackRequest holds an asynchronous third-party biller outcome.
type PostbackRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,uuid"`
	Approved      bool   `json:"approved"`
	BillerTxID    string `json:"biller_transaction_id"`
	Reason        string `json:"reason"`
}

// RebillRequest holds a recurring-charge notification from a third-party
// biller.
type RebillRequest struct {
	BillerTxID string `json:"biller_transaction_id" validate:"required"`
	Approved   bool   `json:"approved"`
}

// --- Response DTOs ---

// PurchaseResponse is the client-facing envelope. It is signed before being
// written; the digest field is injected by the signer.
type PurchaseResponse struct {
	SessionID   string          `json:"sessionId"`
	State       string          `json:"state"`
	NextAction  json.RawMessage `json:"nextAction,omitempty"`
	RedirectURL string          `json:"redirectUrl,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromResult converts a use-case result to the client-facing envelope.
func FromResult(r *app.Result) (*PurchaseResponse, error) {
	resp := &PurchaseResponse{
		SessionID:   r.SessionID,
		State:       string(r.State),
		RedirectURL: r.RedirectURL,
	}
	if r.NextAction != nil {
		raw, err := json.Marshal(r.NextAction)
		if err != nil {
			return nil, err
		}
		resp.NextAction = raw
	}
	return resp, nil
}

// toInitItem converts an HTTP item payload to the application command shape.
func toInitItem(r InitItemRequest) app.InitItem {
	return app.InitItem{
		BundleID:          r.BundleID,
		AddonID:           r.AddonID,
		SiteID:            r.SiteID,
		AmountCents:       floatToCents(r.Amount),
		TaxAmountCents:    floatToCents(r.TaxAmount),
		IsTrial:           r.IsTrial,
		RebillAmountCents: floatToCents(r.RebillAmount),
		RebillFrequency:   r.RebillFrequency,
	}
}

// floatToCents converts a float currency amount to cents.
func floatToCents(f float64) int64 {
	return int64(f * 100)
}
