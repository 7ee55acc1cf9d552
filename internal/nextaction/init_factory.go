package nextaction

import (
	"fmt"

	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

// BillerProfile carries the static biller properties the factories consult.
type BillerProfile struct {
	Name                    string
	ThirdParty              bool
	SupportsThreeDSecure    bool
	AvailablePaymentMethods []string
}

// InitInput is the input domain of the init factory.
type InitInput struct {
	State           purchase.State
	Biller          BillerProfile
	Advice          *purchase.FraudAdvice
	Recommendations purchase.FraudRecommendationCollection
	RedirectURL     string
}

// ForInit maps the post-init aggregate context to the client directive.
// Total over states Created, Valid, Pending and BlockedDueToFraudAdvice;
// any other state is an error.
func ForInit(in InitInput) (Action, error) {
	switch in.State {
	case purchase.StateCreated, purchase.StateValid, purchase.StatePending, purchase.StateBlockedDueToFraudAdvice:
	default:
		return nil, fmt.Errorf("init factory: state %s: %w", in.State, errors.ErrInvalidState)
	}

	if shouldRestartOnInit(in) {
		return RestartProcess{}, nil
	}

	if !in.Biller.ThirdParty {
		action := RenderGateway{}
		if in.Advice != nil {
			action.Force3DSecure = in.Advice.ForceThreeD
			action.Detect3DUsage = in.Advice.DetectThreeDUsage
		}
		return action, nil
	}

	if len(in.Biller.AvailablePaymentMethods) > 0 {
		return RenderGatewayOtherPayments{AvailablePaymentMethods: in.Biller.AvailablePaymentMethods}, nil
	}

	return RedirectToURL{URL: in.RedirectURL}, nil
}

func shouldRestartOnInit(in InitInput) bool {
	if in.State == purchase.StateBlockedDueToFraudAdvice && in.Advice == nil {
		return true
	}
	if in.Advice != nil {
		if in.Advice.Blacklist {
			return true
		}
		if in.Advice.InitCaptchaAdvised && !in.Biller.SupportsThreeDSecure {
			return true
		}
	}
	return in.Recommendations.HasHardBlock()
}
