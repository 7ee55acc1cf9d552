package nextaction

import (
	"fmt"

	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

// ProcessInput is the input domain of the process factory.
type ProcessInput struct {
	State               purchase.State
	AuthenticateURL     string
	HasThirdParty       bool
	RedirectURLExists   bool
	RedirectURL         string
	DeviceCollectionURL string
	DeviceCollectionJWT string
	LastTransaction     *purchase.Transaction
	Resolution          string
	Reason              string
}

// ForProcess maps the post-process aggregate context to the client directive.
func ForProcess(in ProcessInput) (Action, error) {
	switch in.State {
	case purchase.StatePending:
		return pendingAction(in), nil

	case purchase.StateThreeDLookupPerformed:
		return authenticateAction(in), nil

	case purchase.StateProcessed:
		return FinishProcess{Resolution: in.Resolution, Reason: in.Reason}, nil

	case purchase.StateBlockedDueToFraudAdvice:
		return RestartProcess{}, nil

	case purchase.StateValid:
		if !in.HasThirdParty {
			return RenderGateway{}, nil
		}
		if !in.RedirectURLExists {
			return RestartProcess{Error: "Missing redirect url."}, nil
		}
		return RedirectToURL{URL: in.RedirectURL}, nil

	case purchase.StateCascadeBillersExhausted:
		return RedirectToFallbackProcessor{}, nil

	case purchase.StateRedirected:
		return WaitForReturn{}, nil

	default:
		return nil, fmt.Errorf("process factory: state %s: %w", in.State, errors.ErrInvalidState)
	}
}

// pendingAction resolves the three Pending sub-cases: a third-party payment
// link wins, then a straight step-up, then device detection.
func pendingAction(in ProcessInput) Action {
	if in.LastTransaction != nil && in.LastTransaction.ThreeD != nil && in.LastTransaction.ThreeD.PaymentLinkURL != "" {
		return RedirectToURL{URL: in.LastTransaction.ThreeD.PaymentLinkURL}
	}
	if in.DeviceCollectionURL == "" && in.DeviceCollectionJWT == "" {
		return authenticateAction(in)
	}
	return DeviceDetectionThreeD{
		DeviceCollectionURL: in.DeviceCollectionURL,
		DeviceCollectionJWT: in.DeviceCollectionJWT,
	}
}

func authenticateAction(in ProcessInput) AuthenticateThreeD {
	action := AuthenticateThreeD{Version: 1, AuthenticateURL: in.AuthenticateURL}
	if in.LastTransaction != nil && in.LastTransaction.ThreeD != nil {
		t := in.LastTransaction.ThreeD
		action.Version = t.Version
		if action.Version == 0 {
			action.Version = 1
		}
		action.JWT = t.StepUpJWT
		action.MD = t.MD
		if action.AuthenticateURL == "" {
			action.AuthenticateURL = t.StepUpURL
		}
	}
	return action
}
