package purchase

import (
	"context"
	"fmt"

	"github.com/cassiomorais/purchases/internal/billers"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/rs/zerolog"
)

// InitPurchaseUseCase creates the purchase session: it stages the charge
// lines, computes the biller cascade for the session and decides the first
// client directive.
type InitPurchaseUseCase struct {
	gateway       *sessionGateway
	cascades      CascadeResolver
	billerFactory *billers.Factory
	fraud         FraudAdvisor
	cfg           Config
	log           zerolog.Logger
}

// NewInitPurchaseUseCase creates a new InitPurchaseUseCase.
func NewInitPurchaseUseCase(
	store session.Store,
	cascades CascadeResolver,
	billerFactory *billers.Factory,
	fraud FraudAdvisor,
	cfg Config,
	log zerolog.Logger,
) *InitPurchaseUseCase {
	return &InitPurchaseUseCase{
		gateway:       newSessionGateway(store, log),
		cascades:      cascades,
		billerFactory: billerFactory,
		fraud:         fraud,
		cfg:           cfg,
		log:           log,
	}
}

// Execute initializes a purchase session and returns the first directive.
func (uc *InitPurchaseUseCase) Execute(ctx context.Context, cmd Command) (result *Result, err error) {
	c, ok := cmd.(InitPurchaseCommand)
	if !ok {
		return nil, fmt.Errorf("init purchase: got %T: %w", cmd, domainErrors.ErrInvalidCommand)
	}

	items, err := buildItems(c)
	if err != nil {
		return nil, err
	}

	billerOrder, err := uc.cascades.BillersFor(ctx, c.EntrySiteID, c.Currency, "")
	if err != nil {
		return nil, fmt.Errorf("resolve cascade: %w", err)
	}
	cascade, err := purchase.NewCascade(billerOrder)
	if err != nil {
		return nil, err
	}

	p, err := purchase.NewPurchaseProcess(c.EntrySiteID, c.Currency, c.PublicKeyIndex, items, cascade, purchase.UserInfo{
		Email:     c.User.Email,
		FirstName: c.User.FirstName,
		LastName:  c.User.LastName,
		Country:   c.User.Country,
		Zip:       c.User.Zip,
		IPAddress: c.User.IPAddress,
		Username:  c.User.Username,
	})
	if err != nil {
		return nil, err
	}
	p.RedirectURL = c.RedirectURL
	p.PostbackURL = c.PostbackURL
	p.TrafficSource = c.TrafficSource
	p.ExistingMember = c.ExistingMember

	// Persist whatever state the session reached, even when a later step
	// fails.
	defer uc.gateway.persist(ctx, p)

	if uc.cfg.FraudChecksEnabled {
		advice, recs, fraudErr := uc.fraud.AdviseOnInit(ctx, p.UserInfo, p.EntrySiteID)
		if fraudErr != nil {
			uc.log.Warn().Err(fraudErr).Str("session_id", p.SessionID.String()).Msg("Fraud advice unavailable on init")
		} else {
			if err := p.AttachFraudAdvice(advice); err != nil {
				return nil, err
			}
			if err := p.AttachFraudRecommendations(recs); err != nil {
				return nil, err
			}
		}
	}

	profile, redirectURL := uc.currentBillerProfile(p)
	action, err := nextaction.ForInit(nextaction.InitInput{
		State:           p.State,
		Biller:          profile,
		Advice:          p.FraudAdvice,
		Recommendations: p.FraudRecommendations,
		RedirectURL:     redirectURL,
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("session_id", p.SessionID.String()).
		Str("site_id", p.EntrySiteID).
		Str("biller", profile.Name).
		Str("next_action", string(action.ActionType())).
		Msg("Purchase initialized")

	return &Result{
		SessionID:      p.SessionID.String(),
		State:          p.State,
		NextAction:     action,
		PublicKeyIndex: p.PublicKeyIndex,
	}, nil
}

func (uc *InitPurchaseUseCase) currentBillerProfile(p *purchase.PurchaseProcess) (nextaction.BillerProfile, string) {
	name, err := p.Cascade.CurrentBiller()
	if err != nil {
		return nextaction.BillerProfile{}, ""
	}
	b, _, err := uc.billerFactory.Get(name)
	if err != nil {
		return nextaction.BillerProfile{Name: name}, ""
	}
	return nextaction.BillerProfile{
		Name:                    b.Name(),
		ThirdParty:              b.IsThirdParty(),
		SupportsThreeDSecure:    b.SupportsThreeDSecure(),
		AvailablePaymentMethods: b.AvailablePaymentMethods(),
	}, b.RedirectURL(p.SessionID.String())
}

func buildItems(c InitPurchaseCommand) ([]*purchase.InitializedItem, error) {
	main, err := buildItem(c.MainItem, c.Currency, true)
	if err != nil {
		return nil, err
	}
	items := []*purchase.InitializedItem{main}
	for _, spec := range c.CrossSells {
		crossSell, err := buildItem(spec, c.Currency, false)
		if err != nil {
			return nil, err
		}
		items = append(items, crossSell)
	}
	return items, nil
}

func buildItem(spec InitItem, currency string, isMain bool) (*purchase.InitializedItem, error) {
	item, err := purchase.NewInitializedItem(
		spec.BundleID,
		spec.AddonID,
		spec.SiteID,
		purchase.Amount{ValueCents: spec.AmountCents, Currency: currency},
		spec.IsTrial,
		isMain,
	)
	if err != nil {
		return nil, err
	}
	item.TaxAmount = spec.TaxAmountCents
	if spec.RebillAmountCents > 0 {
		item.Rebill = &purchase.RebillTerms{
			AmountCents: spec.RebillAmountCents,
			Frequency:   spec.RebillFrequency,
		}
	}
	return item, nil
}
