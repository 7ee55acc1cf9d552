package purchase

import (
	"context"
	"errors"

	"github.com/cassiomorais/purchases/internal/billers"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/nextaction"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// chargeEngine runs the biller cascade for one process call. Shared by the
// new-payment and existing-payment handlers.
type chargeEngine struct {
	billerFactory *billers.Factory
	cfg           Config
	log           zerolog.Logger
}

// cascadeOutcome summarizes where the cascade run left the aggregate.
type cascadeOutcome struct {
	// thirdParty is set when the cascade stopped at an off-session biller;
	// the state is still Valid and the directive decides the redirect.
	thirdParty       bool
	thirdPartyURL    string
	hasThirdPartyURL bool
	resolution       string
	reason           string
}

// run attempts settlement of the main item against the cascade, advancing on
// declines and recording one transaction per attempt. Cross-sell items are
// settled against the biller that approved the main item; a cross-sell
// decline never cascades.
func (e *chargeEngine) run(ctx context.Context, p *purchase.PurchaseProcess) (*cascadeOutcome, error) {
	main := p.MainItem()
	if main == nil {
		return nil, domainErrors.ErrNoMainItem
	}
	newCC := p.PaymentInfo.Type == purchase.PaymentTypeNewCard

	for {
		billerName, err := p.Cascade.CurrentBiller()
		if err != nil {
			if err := p.MarkCascadeExhausted(); err != nil {
				return nil, err
			}
			return &cascadeOutcome{}, nil
		}

		if e.cfg.ThreeDMandated && !e.billerFactory.SupportsThreeDSecure(billerName) && !e.billerFactory.IsThirdParty(billerName) {
			if err := p.Cascade.RemoveCurrentBillerForThreeD(); err != nil {
				if err := p.MarkCascadeExhausted(); err != nil {
					return nil, err
				}
				return &cascadeOutcome{}, nil
			}
			continue
		}

		biller, breaker, err := e.billerFactory.Get(billerName)
		if err != nil {
			if advErr := p.Cascade.Advance(); advErr != nil {
				if err := p.MarkCascadeExhausted(); err != nil {
					return nil, err
				}
				return &cascadeOutcome{}, nil
			}
			continue
		}

		if biller.IsThirdParty() {
			// Off-session settlement: stage a pending transaction so the
			// later postback can correlate, leave the state decision to the
			// caller.
			tx := purchase.NewTransaction(billerName, purchase.TransactionPending, newCC)
			if err := p.AddTransactionToItem(tx, main.ID); err != nil {
				return nil, err
			}
			url := biller.RedirectURL(p.SessionID.String())
			p.MarkThirdPartySettlement(url)
			return &cascadeOutcome{
				thirdParty:       true,
				thirdPartyURL:    url,
				hasThirdPartyURL: url != "",
			}, nil
		}

		if err := p.Cascade.IncrementSubmit(e.cfg.MaxBillerSubmits); err != nil {
			if errors.Is(err, domainErrors.ErrMaxSubmitsReached) {
				if advErr := p.Cascade.Advance(); advErr != nil {
					if err := p.MarkCascadeExhausted(); err != nil {
						return nil, err
					}
					return &cascadeOutcome{}, nil
				}
				continue
			}
			return nil, err
		}

		result, err := breaker.Execute(func() (*billers.ChargeResult, error) {
			return biller.Charge(ctx, billers.ChargeRequest{
				SessionID:       p.SessionID.String(),
				ItemID:          main.ID.String(),
				AmountCents:     main.Amount.ValueCents,
				Currency:        main.Amount.Currency,
				PaymentType:     string(p.PaymentInfo.Type),
				CardToken:       p.PaymentInfo.CardToken,
				TemplateID:      p.PaymentInfo.TemplateID,
				ThreeDRequested: e.threeDRequested(p),
			})
		})
		if err != nil {
			// No business meaning can be assigned to a breaker-open or
			// timeout failure; record the aborted attempt and fall through
			// the cascade.
			e.log.Warn().Err(err).Str("session_id", p.SessionID.String()).Str("biller", billerName).Msg("Biller call failed")
			tx := purchase.NewTransaction(billerName, purchase.TransactionAborted, newCC)
			if err := p.AddTransactionToItem(tx, main.ID); err != nil {
				return nil, err
			}
			if advErr := p.Cascade.Advance(); advErr != nil {
				if err := p.MarkCascadeExhausted(); err != nil {
					return nil, err
				}
				return &cascadeOutcome{}, nil
			}
			continue
		}

		switch result.Status {
		case billers.StatusApproved:
			tx := purchase.NewTransaction(billerName, purchase.TransactionApproved, newCC)
			tx.BillerTxID = result.BillerTxID
			if err := p.AddTransactionToItem(tx, main.ID); err != nil {
				return nil, err
			}
			e.settleCrossSells(ctx, p, biller, breaker, newCC)
			if err := p.MarkPending(); err != nil {
				return nil, err
			}
			if err := p.FinishProcessing(); err != nil {
				return nil, err
			}
			return &cascadeOutcome{resolution: "approved"}, nil

		case billers.StatusPending:
			tx := purchase.NewTransaction(billerName, purchase.TransactionPending, newCC)
			tx.BillerTxID = result.BillerTxID
			if result.ThreeD != nil {
				tx.AttachThreeD(purchase.ThreeDInfo{
					Version:        result.ThreeD.Version,
					Frictionless:   result.ThreeD.Frictionless,
					StepUpURL:      result.ThreeD.StepUpURL,
					StepUpJWT:      result.ThreeD.StepUpJWT,
					MD:             result.ThreeD.MD,
					PaymentLinkURL: result.ThreeD.PaymentLinkURL,
				})
			}
			if result.DeviceCollection != nil {
				tx.AttachDeviceCollection(result.DeviceCollection.URL, result.DeviceCollection.JWT)
			}
			if err := p.AddTransactionToItem(tx, main.ID); err != nil {
				return nil, err
			}
			if err := p.MarkPending(); err != nil {
				return nil, err
			}
			return &cascadeOutcome{}, nil

		case billers.StatusDeclined:
			tx := purchase.NewTransaction(billerName, purchase.TransactionDeclined, newCC)
			tx.BillerTxID = result.BillerTxID
			if err := p.AddTransactionToItem(tx, main.ID); err != nil {
				return nil, err
			}
			e.log.Info().
				Str("session_id", p.SessionID.String()).
				Str("biller", billerName).
				Str("reason", result.DeclineReason).
				Msg("Charge declined, continuing cascade")
			// next iteration retries the same biller until the submit
			// bound, then advances
			continue

		default:
			return nil, domainErrors.NewTransientError(domainErrors.ErrBillerUnavailable)
		}
	}
}

func (e *chargeEngine) threeDRequested(p *purchase.PurchaseProcess) bool {
	if e.cfg.ThreeDMandated {
		return true
	}
	return p.FraudAdvice != nil && p.FraudAdvice.ForceThreeD
}

func (e *chargeEngine) settleCrossSells(
	ctx context.Context,
	p *purchase.PurchaseProcess,
	biller billers.Biller,
	breaker *gobreaker.CircuitBreaker[*billers.ChargeResult],
	newCC bool,
) {
	for _, item := range p.Items {
		if item.IsMain {
			continue
		}
		result, err := breaker.Execute(func() (*billers.ChargeResult, error) {
			return biller.Charge(ctx, billers.ChargeRequest{
				SessionID:   p.SessionID.String(),
				ItemID:      item.ID.String(),
				AmountCents: item.Amount.ValueCents,
				Currency:    item.Amount.Currency,
				PaymentType: string(p.PaymentInfo.Type),
				CardToken:   p.PaymentInfo.CardToken,
				TemplateID:  p.PaymentInfo.TemplateID,
			})
		})
		state := purchase.TransactionDeclined
		billerTxID := ""
		if err == nil && result.Status == billers.StatusApproved {
			state = purchase.TransactionApproved
			billerTxID = result.BillerTxID
		}
		tx := purchase.NewTransaction(biller.Name(), state, newCC)
		tx.BillerTxID = billerTxID
		if addErr := p.AddTransactionToItem(tx, item.ID); addErr != nil {
			e.log.Warn().Err(addErr).Str("session_id", p.SessionID.String()).Msg("Failed to record cross-sell attempt")
		}
	}
}

// processAction builds the process-factory directive from the aggregate after
// a cascade run.
func (e *chargeEngine) processAction(p *purchase.PurchaseProcess, outcome *cascadeOutcome) (nextaction.Action, error) {
	in := nextaction.ProcessInput{
		State:             p.State,
		HasThirdParty:     outcome.thirdParty,
		RedirectURLExists: outcome.hasThirdPartyURL,
		RedirectURL:       outcome.thirdPartyURL,
		Resolution:        outcome.resolution,
		Reason:            outcome.reason,
	}
	if main := p.MainItem(); main != nil {
		if last := main.LastTransaction(); last != nil {
			in.LastTransaction = last
			if last.ThreeD != nil {
				in.AuthenticateURL = last.ThreeD.StepUpURL
			}
			if last.DeviceCollection != nil {
				in.DeviceCollectionURL = last.DeviceCollection.URL
				in.DeviceCollectionJWT = last.DeviceCollection.JWT
			}
		}
	}
	return nextaction.ForProcess(in)
}
