package session

import (
	"encoding/json"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/google/uuid"
)

// payload is the persisted JSON shape of a purchase session at the current
// schema version.
type payload struct {
	Version                       int                       `json:"version"`
	SessionID                     string                    `json:"sessionId"`
	State                         string                    `json:"state"`
	Cascade                       cascadePayload            `json:"cascade"`
	InitializedItemCollection     []itemPayload             `json:"initializedItemCollection"`
	FraudAdvice                   *fraudAdvicePayload       `json:"fraudAdvice,omitempty"`
	FraudRecommendationCollection []fraudRecommendation     `json:"fraudRecommendationCollection,omitempty"`
	UserInfo                      userInfoPayload           `json:"userInfo"`
	PaymentTemplateCollection     []paymentTemplatePayload  `json:"paymentTemplateCollection,omitempty"`
	PaymentType                   string                    `json:"paymentType,omitempty"`
	PaymentInfo                   paymentInfoPayload        `json:"paymentInfo"`
	PublicKeyIndex                int                       `json:"publicKeyIndex"`
	EntrySiteID                   string                    `json:"entrySiteId"`
	RedirectURL                   string                    `json:"redirectUrl,omitempty"`
	PostbackURL                   string                    `json:"postbackUrl,omitempty"`
	Currency                      string                    `json:"currency"`
	TrafficSource                 string                    `json:"trafficSource"`
	ExistingMember                bool                      `json:"existingMember"`
	CreatedAt                     time.Time                 `json:"createdAt"`
	UpdatedAt                     time.Time                 `json:"updatedAt"`
}

type cascadePayload struct {
	Billers                 []string `json:"billers"`
	CurrentBiller           string   `json:"currentBiller,omitempty"`
	CurrentBillerPosition   int      `json:"currentBillerPosition"`
	CurrentBillerSubmit     int      `json:"currentBillerSubmit"`
	RemovedBillersForThreeD []string `json:"removedBillersFor3DS,omitempty"`
}

type itemPayload struct {
	ItemID                string               `json:"itemId"`
	BundleID              string               `json:"bundleId"`
	AddonID               string               `json:"addonId,omitempty"`
	SiteID                string               `json:"siteId,omitempty"`
	AmountCents           int64                `json:"amountCents"`
	TaxAmountCents        int64                `json:"taxAmountCents,omitempty"`
	Currency              string               `json:"currency"`
	IsTrial               bool                 `json:"isTrial"`
	IsMain                bool                 `json:"isMain"`
	RebillAmountCents     int64                `json:"rebillAmountCents,omitempty"`
	RebillFrequency       int                  `json:"rebillFrequency,omitempty"`
	TransactionCollection []transactionPayload `json:"transactionCollection"`
}

type transactionPayload struct {
	TransactionID       string    `json:"transactionId"`
	State               string    `json:"state"`
	BillerName          string    `json:"billerName"`
	BillerTxID          string    `json:"billerTransactionId,omitempty"`
	NewCCUsed           bool      `json:"newCCUsed"`
	ThreeDVersion       int       `json:"threeDVersion,omitempty"`
	ThreeDFrictionless  bool      `json:"threeDFrictionless,omitempty"`
	ThreeDStepUpURL     string    `json:"threeDStepUpUrl,omitempty"`
	ThreeDStepUpJWT     string    `json:"threeDStepUpJwt,omitempty"`
	ThreeDMD            string    `json:"threeDMd,omitempty"`
	ThreeDPaymentLink   string    `json:"threeDPaymentLinkUrl,omitempty"`
	DeviceCollectionURL string    `json:"deviceCollectionUrl,omitempty"`
	DeviceCollectionJWT string    `json:"deviceCollectionJwt,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

type fraudAdvicePayload struct {
	Blacklist             bool `json:"blacklist"`
	InitCaptchaAdvised    bool `json:"initCaptchaAdvised"`
	ProcessCaptchaAdvised bool `json:"processCaptchaAdvised"`
	ForceThreeD           bool `json:"forceThreeD"`
	DetectThreeDUsage     bool `json:"detectThreeDUsage"`
}

type fraudRecommendation struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type userInfoPayload struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Country   string `json:"country,omitempty"`
	Zip       string `json:"zip,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	Username  string `json:"username,omitempty"`
}

type paymentTemplatePayload struct {
	TemplateID   string `json:"templateId"`
	CardBin      string `json:"cardBin,omitempty"`
	CardLastFour string `json:"cardLastFour,omitempty"`
	ExpMonth     int    `json:"expMonth,omitempty"`
	ExpYear      int    `json:"expYear,omitempty"`
	BillerName   string `json:"billerName,omitempty"`
}

type paymentInfoPayload struct {
	Type          string `json:"type,omitempty"`
	CardToken     string `json:"cardToken,omitempty"`
	CardBin       string `json:"cardBin,omitempty"`
	CardLastFour  string `json:"cardLastFour,omitempty"`
	TemplateID    string `json:"templateId,omitempty"`
	ThirdPartyURL string `json:"thirdPartyUrl,omitempty"`
}

// Serialize renders the aggregate as its current-version payload.
func Serialize(p *purchase.PurchaseProcess) (string, error) {
	pl := payload{
		Version:        purchase.CurrentSchemaVersion,
		SessionID:      p.SessionID.String(),
		State:          p.State.String(),
		PublicKeyIndex: p.PublicKeyIndex,
		EntrySiteID:    p.EntrySiteID,
		RedirectURL:    p.RedirectURL,
		PostbackURL:    p.PostbackURL,
		Currency:       p.Currency,
		TrafficSource:  p.TrafficSource,
		ExistingMember: p.ExistingMember,
		PaymentType:    string(p.PaymentInfo.Type),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		UserInfo: userInfoPayload{
			Email:     p.UserInfo.Email,
			FirstName: p.UserInfo.FirstName,
			LastName:  p.UserInfo.LastName,
			Country:   p.UserInfo.Country,
			Zip:       p.UserInfo.Zip,
			IPAddress: p.UserInfo.IPAddress,
			Username:  p.UserInfo.Username,
		},
		PaymentInfo: paymentInfoPayload{
			Type:          string(p.PaymentInfo.Type),
			CardToken:     p.PaymentInfo.CardToken,
			CardBin:       p.PaymentInfo.CardBin,
			CardLastFour:  p.PaymentInfo.CardLastFour,
			TemplateID:    p.PaymentInfo.TemplateID,
			ThirdPartyURL: p.PaymentInfo.ThirdPartyURL,
		},
	}

	if p.Cascade != nil {
		current, _ := p.Cascade.CurrentBiller()
		pl.Cascade = cascadePayload{
			Billers:                 p.Cascade.Billers,
			CurrentBiller:           current,
			CurrentBillerPosition:   p.Cascade.CurrentBillerPosition,
			CurrentBillerSubmit:     p.Cascade.CurrentBillerSubmit,
			RemovedBillersForThreeD: p.Cascade.RemovedBillersForThreeD,
		}
	}

	if p.FraudAdvice != nil {
		pl.FraudAdvice = &fraudAdvicePayload{
			Blacklist:             p.FraudAdvice.Blacklist,
			InitCaptchaAdvised:    p.FraudAdvice.InitCaptchaAdvised,
			ProcessCaptchaAdvised: p.FraudAdvice.ProcessCaptchaAdvised,
			ForceThreeD:           p.FraudAdvice.ForceThreeD,
			DetectThreeDUsage:     p.FraudAdvice.DetectThreeDUsage,
		}
	}
	for _, r := range p.FraudRecommendations {
		pl.FraudRecommendationCollection = append(pl.FraudRecommendationCollection, fraudRecommendation{
			Severity: string(r.Severity),
			Code:     r.Code,
			Message:  r.Message,
		})
	}
	for _, t := range p.PaymentTemplates {
		pl.PaymentTemplateCollection = append(pl.PaymentTemplateCollection, paymentTemplatePayload{
			TemplateID:   t.TemplateID,
			CardBin:      t.CardBin,
			CardLastFour: t.CardLastFour,
			ExpMonth:     t.ExpMonth,
			ExpYear:      t.ExpYear,
			BillerName:   t.BillerName,
		})
	}
	for _, item := range p.Items {
		ip := itemPayload{
			ItemID:                item.ID.String(),
			BundleID:              item.BundleID,
			AddonID:               item.AddonID,
			SiteID:                item.SiteID,
			AmountCents:           item.Amount.ValueCents,
			TaxAmountCents:        item.TaxAmount,
			Currency:              item.Amount.Currency,
			IsTrial:               item.IsTrial,
			IsMain:                item.IsMain,
			TransactionCollection: []transactionPayload{},
		}
		if item.Rebill != nil {
			ip.RebillAmountCents = item.Rebill.AmountCents
			ip.RebillFrequency = item.Rebill.Frequency
		}
		for _, t := range item.Transactions() {
			tp := transactionPayload{
				TransactionID: t.ID.String(),
				State:         string(t.State),
				BillerName:    t.BillerName,
				BillerTxID:    t.BillerTxID,
				NewCCUsed:     t.NewCCUsed,
				CreatedAt:     t.CreatedAt,
			}
			if t.ThreeD != nil {
				tp.ThreeDVersion = t.ThreeD.Version
				tp.ThreeDFrictionless = t.ThreeD.Frictionless
				tp.ThreeDStepUpURL = t.ThreeD.StepUpURL
				tp.ThreeDStepUpJWT = t.ThreeD.StepUpJWT
				tp.ThreeDMD = t.ThreeD.MD
				tp.ThreeDPaymentLink = t.ThreeD.PaymentLinkURL
			}
			if t.DeviceCollection != nil {
				tp.DeviceCollectionURL = t.DeviceCollection.URL
				tp.DeviceCollectionJWT = t.DeviceCollection.JWT
			}
			ip.TransactionCollection = append(ip.TransactionCollection, tp)
		}
		pl.InitializedItemCollection = append(pl.InitializedItemCollection, ip)
	}

	out, err := json.Marshal(pl)
	if err != nil {
		return "", fmt.Errorf("serialize session payload: %w", err)
	}
	return string(out), nil
}

// Deserialize rehydrates the aggregate from a payload string. The payload is
// migrated to the current schema version first.
func Deserialize(raw string) (*purchase.PurchaseProcess, error) {
	converted, err := Convert(raw)
	if err != nil {
		return nil, err
	}

	var pl payload
	if err := json.Unmarshal([]byte(converted), &pl); err != nil {
		return nil, fmt.Errorf("decode session payload: %w: %v", domainErrors.ErrSessionConversion, err)
	}

	sessionID, err := uuid.Parse(pl.SessionID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w: %v", domainErrors.ErrSessionConversion, err)
	}
	state, err := purchase.ParseState(pl.State)
	if err != nil {
		return nil, err
	}

	p := &purchase.PurchaseProcess{
		SessionID:      sessionID,
		State:          state,
		PublicKeyIndex: pl.PublicKeyIndex,
		EntrySiteID:    pl.EntrySiteID,
		RedirectURL:    pl.RedirectURL,
		PostbackURL:    pl.PostbackURL,
		Currency:       pl.Currency,
		TrafficSource:  pl.TrafficSource,
		ExistingMember: pl.ExistingMember,
		Version:        purchase.CurrentSchemaVersion,
		CreatedAt:      pl.CreatedAt,
		UpdatedAt:      pl.UpdatedAt,
		UserInfo: purchase.UserInfo{
			Email:     pl.UserInfo.Email,
			FirstName: pl.UserInfo.FirstName,
			LastName:  pl.UserInfo.LastName,
			Country:   pl.UserInfo.Country,
			Zip:       pl.UserInfo.Zip,
			IPAddress: pl.UserInfo.IPAddress,
			Username:  pl.UserInfo.Username,
		},
		PaymentInfo: purchase.PaymentInfo{
			Type:          purchase.PaymentType(pl.PaymentInfo.Type),
			CardToken:     pl.PaymentInfo.CardToken,
			CardBin:       pl.PaymentInfo.CardBin,
			CardLastFour:  pl.PaymentInfo.CardLastFour,
			TemplateID:    pl.PaymentInfo.TemplateID,
			ThirdPartyURL: pl.PaymentInfo.ThirdPartyURL,
		},
		Cascade: &purchase.Cascade{
			Billers:                 pl.Cascade.Billers,
			CurrentBillerPosition:   pl.Cascade.CurrentBillerPosition,
			CurrentBillerSubmit:     pl.Cascade.CurrentBillerSubmit,
			RemovedBillersForThreeD: pl.Cascade.RemovedBillersForThreeD,
		},
	}

	if pl.FraudAdvice != nil {
		p.FraudAdvice = &purchase.FraudAdvice{
			Blacklist:             pl.FraudAdvice.Blacklist,
			InitCaptchaAdvised:    pl.FraudAdvice.InitCaptchaAdvised,
			ProcessCaptchaAdvised: pl.FraudAdvice.ProcessCaptchaAdvised,
			ForceThreeD:           pl.FraudAdvice.ForceThreeD,
			DetectThreeDUsage:     pl.FraudAdvice.DetectThreeDUsage,
		}
	}
	for _, r := range pl.FraudRecommendationCollection {
		p.FraudRecommendations = append(p.FraudRecommendations, purchase.FraudRecommendation{
			Severity: purchase.FraudRecommendationSeverity(r.Severity),
			Code:     r.Code,
			Message:  r.Message,
		})
	}
	for _, t := range pl.PaymentTemplateCollection {
		p.PaymentTemplates = append(p.PaymentTemplates, purchase.PaymentTemplate{
			TemplateID:   t.TemplateID,
			CardBin:      t.CardBin,
			CardLastFour: t.CardLastFour,
			ExpMonth:     t.ExpMonth,
			ExpYear:      t.ExpYear,
			BillerName:   t.BillerName,
		})
	}

	for _, ip := range pl.InitializedItemCollection {
		itemID, err := uuid.Parse(ip.ItemID)
		if err != nil {
			return nil, fmt.Errorf("parse item id: %w: %v", domainErrors.ErrSessionConversion, err)
		}
		item := &purchase.InitializedItem{
			ID:        itemID,
			BundleID:  ip.BundleID,
			AddonID:   ip.AddonID,
			SiteID:    ip.SiteID,
			Amount:    purchase.Amount{ValueCents: ip.AmountCents, Currency: ip.Currency},
			TaxAmount: ip.TaxAmountCents,
			IsTrial:   ip.IsTrial,
			IsMain:    ip.IsMain,
		}
		if ip.RebillAmountCents > 0 || ip.RebillFrequency > 0 {
			item.Rebill = &purchase.RebillTerms{AmountCents: ip.RebillAmountCents, Frequency: ip.RebillFrequency}
		}
		for _, tp := range ip.TransactionCollection {
			txID, err := uuid.Parse(tp.TransactionID)
			if err != nil {
				return nil, fmt.Errorf("parse transaction id: %w: %v", domainErrors.ErrSessionConversion, err)
			}
			t := &purchase.Transaction{
				ID:         txID,
				State:      purchase.TransactionState(tp.State),
				BillerName: tp.BillerName,
				BillerTxID: tp.BillerTxID,
				NewCCUsed:  tp.NewCCUsed,
				CreatedAt:  tp.CreatedAt,
			}
			if tp.ThreeDVersion > 0 || tp.ThreeDStepUpURL != "" || tp.ThreeDMD != "" || tp.ThreeDPaymentLink != "" {
				t.ThreeD = &purchase.ThreeDInfo{
					Version:        tp.ThreeDVersion,
					Frictionless:   tp.ThreeDFrictionless,
					StepUpURL:      tp.ThreeDStepUpURL,
					StepUpJWT:      tp.ThreeDStepUpJWT,
					MD:             tp.ThreeDMD,
					PaymentLinkURL: tp.ThreeDPaymentLink,
				}
			}
			if tp.DeviceCollectionURL != "" || tp.DeviceCollectionJWT != "" {
				t.DeviceCollection = &purchase.DeviceCollectionInfo{
					URL: tp.DeviceCollectionURL,
					JWT: tp.DeviceCollectionJWT,
				}
			}
			item.AddTransaction(t)
		}
		p.Items = append(p.Items, item)
	}

	return p, nil
}
