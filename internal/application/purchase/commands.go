package purchase

// Command is the marker for inbound use-case commands. Each handler validates
// that the command it receives is the type it expects and rejects anything
// else with ErrInvalidCommand.
type Command interface {
	CommandType() string
}

// InitItem describes one charge line in an init command.
type InitItem struct {
	BundleID          string
	AddonID           string
	SiteID            string
	AmountCents       int64
	TaxAmountCents    int64
	IsTrial           bool
	RebillAmountCents int64
	RebillFrequency   int
}

// InitPurchaseCommand starts a purchase session.
type InitPurchaseCommand struct {
	EntrySiteID    string
	Currency       string
	PublicKeyIndex int
	MainItem       InitItem
	CrossSells     []InitItem
	User           UserDetails
	RedirectURL    string
	PostbackURL    string
	TrafficSource  string
	ExistingMember bool
}

func (InitPurchaseCommand) CommandType() string { return "initPurchase" }

// UserDetails carries the purchaser fields of an init command.
type UserDetails struct {
	Email     string
	FirstName string
	LastName  string
	Country   string
	Zip       string
	IPAddress string
	Username  string
}

// ProcessNewPaymentCommand settles a purchase with a freshly entered card.
type ProcessNewPaymentCommand struct {
	SessionID    string
	CardToken    string
	CardBin      string
	CardLastFour string
}

func (ProcessNewPaymentCommand) CommandType() string { return "processNewPayment" }

// ProcessExistingPaymentCommand settles a purchase with a stored payment
// template.
type ProcessExistingPaymentCommand struct {
	SessionID  string
	TemplateID string
}

func (ProcessExistingPaymentCommand) CommandType() string { return "processExistingPayment" }

// CompleteThreeDCommand finishes a pending 3-D Secure challenge, either the
// device-detection step or the final authentication return.
type CompleteThreeDCommand struct {
	SessionID     string
	TransactionID string
	// DeviceDetectionOnly marks the device-fingerprinting completion that
	// records the lookup without finishing authentication.
	DeviceDetectionOnly bool
}

func (CompleteThreeDCommand) CommandType() string { return "completeThreeD" }

// ThirdPartyPostbackCommand applies an asynchronous biller outcome.
type ThirdPartyPostbackCommand struct {
	SessionID     string
	TransactionID string
	Approved      bool
	BillerTxID    string
	Reason        string
}

func (ThirdPartyPostbackCommand) CommandType() string { return "thirdPartyPostback" }

// ThirdPartyRebillCommand spawns a follow-up session for a recurring charge
// reported by a third-party biller.
type ThirdPartyRebillCommand struct {
	SessionID  string
	BillerTxID string
	Approved   bool
}

func (ThirdPartyRebillCommand) CommandType() string { return "thirdPartyRebill" }
