package purchase

// PaymentType discriminates the payment info variants.
type PaymentType string

const (
	PaymentTypeNewCard    PaymentType = "newCard"
	PaymentTypeTemplate   PaymentType = "paymentTemplate"
	PaymentTypeThirdParty PaymentType = "thirdParty"
)

// PaymentInfo carries the payment method for the purchase. Exactly one of the
// variant fields is meaningful for a given Type.
type PaymentInfo struct {
	Type          PaymentType
	CardToken     string // newCard: opaque vault token, never raw PAN
	CardBin       string
	CardLastFour  string
	TemplateID    string // paymentTemplate: stored card template
	ThirdPartyURL string // thirdParty: off-session processor entry point
}

// IsSet reports whether a payment method was captured.
func (p PaymentInfo) IsSet() bool {
	return p.Type != ""
}

// PaymentTemplate is a previously stored payment method offered for reuse.
type PaymentTemplate struct {
	TemplateID   string
	CardBin      string
	CardLastFour string
	ExpMonth     int
	ExpYear      int
	BillerName   string
}

// UserInfo holds the purchaser details captured at init.
type UserInfo struct {
	Email     string
	FirstName string
	LastName  string
	Country   string
	Zip       string
	IPAddress string
	Username  string
}
