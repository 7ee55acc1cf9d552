// Package nextaction implements the decision protocol that tells the calling
// client what to do next at every step of a purchase. The action set is
// closed; each variant serializes to a small fixed JSON shape.
package nextaction

import (
	"encoding/json"
)

// Type tags the action variant in the client-facing JSON.
type Type string

const (
	TypeRenderGateway               Type = "renderGateway"
	TypeRenderGatewayOtherPayments  Type = "renderGatewayOtherPayments"
	TypeRedirectToURL               Type = "redirectToUrl"
	TypeAuthenticateThreeD          Type = "authenticate3D"
	TypeDeviceDetectionThreeD       Type = "deviceDetection3D"
	TypeWaitForReturn               Type = "waitForReturn"
	TypeRedirectToFallbackProcessor Type = "redirectToFallbackProcessor"
	TypeRestartProcess              Type = "restartProcess"
	TypeFinishProcess               Type = "finishProcess"
)

// Action is one directive from the closed set.
type Action interface {
	ActionType() Type
	json.Marshaler
}

// RenderGateway tells the client to render the on-session payment gateway.
type RenderGateway struct {
	Force3DSecure bool
	Detect3DUsage bool
}

func (RenderGateway) ActionType() Type { return TypeRenderGateway }

func (a RenderGateway) MarshalJSON() ([]byte, error) {
	type threeD struct {
		Force3DSecure bool `json:"force3DSecure"`
		Detect3DUsage bool `json:"detect3DUsage"`
	}
	out := struct {
		Type   Type    `json:"type"`
		ThreeD *threeD `json:"threeD,omitempty"`
	}{Type: TypeRenderGateway}
	if a.Force3DSecure || a.Detect3DUsage {
		out.ThreeD = &threeD{Force3DSecure: a.Force3DSecure, Detect3DUsage: a.Detect3DUsage}
	}
	return json.Marshal(out)
}

// RenderGatewayOtherPayments tells the client to render the alternate payment
// method chooser exposed by the biller.
type RenderGatewayOtherPayments struct {
	AvailablePaymentMethods []string
}

func (RenderGatewayOtherPayments) ActionType() Type { return TypeRenderGatewayOtherPayments }

func (a RenderGatewayOtherPayments) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type                    Type     `json:"type"`
		AvailablePaymentMethods []string `json:"availablePaymentMethods"`
	}{TypeRenderGatewayOtherPayments, a.AvailablePaymentMethods})
}

// RedirectToURL tells the client to redirect to a third-party processor.
type RedirectToURL struct {
	URL string
}

func (RedirectToURL) ActionType() Type { return TypeRedirectToURL }

func (a RedirectToURL) MarshalJSON() ([]byte, error) {
	type thirdParty struct {
		URL string `json:"url"`
	}
	return json.Marshal(struct {
		Type       Type       `json:"type"`
		ThirdParty thirdParty `json:"thirdParty"`
	}{TypeRedirectToURL, thirdParty{a.URL}})
}

// AuthenticateThreeD tells the client to run the 3-D Secure step-up
// challenge. The payload shape branches on the protocol version carried on
// the last transaction: version 1 flows carry an MD blob, version 2 flows
// carry a step-up JWT.
type AuthenticateThreeD struct {
	Version         int
	AuthenticateURL string
	JWT             string
	MD              string
}

func (AuthenticateThreeD) ActionType() Type { return TypeAuthenticateThreeD }

func (a AuthenticateThreeD) MarshalJSON() ([]byte, error) {
	if a.Version >= 2 {
		type threeD struct {
			AuthenticateURL string `json:"authenticateUrl"`
			JWT             string `json:"jwt"`
		}
		return json.Marshal(struct {
			Type    Type   `json:"type"`
			Version int    `json:"version"`
			ThreeD  threeD `json:"threeD"`
		}{TypeAuthenticateThreeD, a.Version, threeD{a.AuthenticateURL, a.JWT}})
	}
	type threeD struct {
		AuthenticateURL string `json:"authenticateUrl"`
		MD              string `json:"md,omitempty"`
	}
	return json.Marshal(struct {
		Type    Type   `json:"type"`
		Version int    `json:"version"`
		ThreeD  threeD `json:"threeD"`
	}{TypeAuthenticateThreeD, 1, threeD{a.AuthenticateURL, a.MD}})
}

// DeviceDetectionThreeD tells the client to run the device fingerprinting
// collection step ahead of a 3-D Secure version 2 lookup.
type DeviceDetectionThreeD struct {
	DeviceCollectionURL string
	DeviceCollectionJWT string
}

func (DeviceDetectionThreeD) ActionType() Type { return TypeDeviceDetectionThreeD }

func (a DeviceDetectionThreeD) MarshalJSON() ([]byte, error) {
	type threeD struct {
		DeviceCollectionURL string `json:"deviceCollectionUrl"`
		DeviceCollectionJWT string `json:"deviceCollectionJWT"`
	}
	return json.Marshal(struct {
		Type   Type   `json:"type"`
		ThreeD threeD `json:"threeD"`
	}{TypeDeviceDetectionThreeD, threeD{a.DeviceCollectionURL, a.DeviceCollectionJWT}})
}

// WaitForReturn tells the client the purchase is off-session and will resolve
// via postback.
type WaitForReturn struct{}

func (WaitForReturn) ActionType() Type { return TypeWaitForReturn }

func (WaitForReturn) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Type `json:"type"`
	}{TypeWaitForReturn})
}

// RedirectToFallbackProcessor tells the client to hand the purchase to the
// fallback processor after cascade exhaustion.
type RedirectToFallbackProcessor struct{}

func (RedirectToFallbackProcessor) ActionType() Type { return TypeRedirectToFallbackProcessor }

func (RedirectToFallbackProcessor) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Type `json:"type"`
	}{TypeRedirectToFallbackProcessor})
}

// RestartProcess tells the client to discard the session and start over.
type RestartProcess struct {
	Error string
}

func (RestartProcess) ActionType() Type { return TypeRestartProcess }

func (a RestartProcess) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  Type   `json:"type"`
		Error string `json:"error,omitempty"`
	}{TypeRestartProcess, a.Error})
}

// FinishProcess tells the client the purchase reached its terminal outcome.
type FinishProcess struct {
	Resolution string
	Reason     string
}

func (FinishProcess) ActionType() Type { return TypeFinishProcess }

func (a FinishProcess) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       Type   `json:"type"`
		Resolution string `json:"resolution,omitempty"`
		Reason     string `json:"reason,omitempty"`
	}{TypeFinishProcess, a.Resolution, a.Reason})
}
