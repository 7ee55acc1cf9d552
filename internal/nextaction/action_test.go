package nextaction_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/purchases/internal/nextaction"
)

func marshal(t *testing.T, a nextaction.Action) string {
	t.Helper()
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	return string(raw)
}

func TestRenderGateway_JSON(t *testing.T) {
	assert.JSONEq(t, `{"type":"renderGateway"}`, marshal(t, nextaction.RenderGateway{}))
	assert.JSONEq(t,
		`{"type":"renderGateway","threeD":{"force3DSecure":true,"detect3DUsage":false}}`,
		marshal(t, nextaction.RenderGateway{Force3DSecure: true}))
	assert.JSONEq(t,
		`{"type":"renderGateway","threeD":{"force3DSecure":false,"detect3DUsage":true}}`,
		marshal(t, nextaction.RenderGateway{Detect3DUsage: true}))
}

func TestRenderGatewayOtherPayments_JSON(t *testing.T) {
	assert.JSONEq(t,
		`{"type":"renderGatewayOtherPayments","availablePaymentMethods":["sepa","giropay"]}`,
		marshal(t, nextaction.RenderGatewayOtherPayments{AvailablePaymentMethods: []string{"sepa", "giropay"}}))
}

func TestRedirectToURL_JSON(t *testing.T) {
	assert.JSONEq(t,
		`{"type":"redirectToUrl","thirdParty":{"url":"https://biller.example.com/pay"}}`,
		marshal(t, nextaction.RedirectToURL{URL: "https://biller.example.com/pay"}))
}

func TestAuthenticateThreeD_Version1JSON(t *testing.T) {
	assert.JSONEq(t,
		`{"type":"authenticate3D","version":1,"threeD":{"authenticateUrl":"https://acs.example.com","md":"md-blob"}}`,
		marshal(t, nextaction.AuthenticateThreeD{Version: 1, AuthenticateURL: "https://acs.example.com", MD: "md-blob"}))
}

func TestAuthenticateThreeD_Version1OmitsEmptyMD(t *testing.T) {
	assert.JSONEq(t,
		`{"type":"authenticate3D","version":1,"threeD":{"authenticateUrl":"https://acs.example.com"}}`,
		marshal(t, nextaction.AuthenticateThreeD{Version: 1, AuthenticateURL: "https://acs.example.com"}))
}

func TestAuthenticateThreeD_Version2JSON(t *testing.T) {
	assert.JSONEq(t,
		`{"type":"authenticate3D","version":2,"threeD":{"authenticateUrl":"https://acs.example.com","jwt":"step-up-jwt"}}`,
		marshal(t, nextaction.AuthenticateThreeD{Version: 2, AuthenticateURL: "https://acs.example.com", JWT: "step-up-jwt"}))
}

func TestAuthenticateThreeD_ZeroVersionDefaultsToOne(t *testing.T) {
	out := marshal(t, nextaction.AuthenticateThreeD{AuthenticateURL: "https://acs.example.com"})
	assert.Contains(t, out, `"version":1`)
}

func TestDeviceDetectionThreeD_JSON(t *testing.T) {
	assert.JSONEq(t,
		`{"type":"deviceDetection3D","threeD":{"deviceCollectionUrl":"https://dd.example.com","deviceCollectionJWT":"dd-jwt"}}`,
		marshal(t, nextaction.DeviceDetectionThreeD{DeviceCollectionURL: "https://dd.example.com", DeviceCollectionJWT: "dd-jwt"}))
}

func TestWaitForReturn_JSON(t *testing.T) {
	assert.JSONEq(t, `{"type":"waitForReturn"}`, marshal(t, nextaction.WaitForReturn{}))
}

func TestRedirectToFallbackProcessor_JSON(t *testing.T) {
	assert.JSONEq(t, `{"type":"redirectToFallbackProcessor"}`, marshal(t, nextaction.RedirectToFallbackProcessor{}))
}

func TestRestartProcess_JSON(t *testing.T) {
	assert.JSONEq(t, `{"type":"restartProcess"}`, marshal(t, nextaction.RestartProcess{}))
	assert.JSONEq(t,
		`{"type":"restartProcess","error":"Missing redirect url."}`,
		marshal(t, nextaction.RestartProcess{Error: "Missing redirect url."}))
}

func TestFinishProcess_JSON(t *testing.T) {
	assert.JSONEq(t, `{"type":"finishProcess"}`, marshal(t, nextaction.FinishProcess{}))
	assert.JSONEq(t,
		`{"type":"finishProcess","resolution":"declined","reason":"insufficient funds"}`,
		marshal(t, nextaction.FinishProcess{Resolution: "declined", Reason: "insufficient funds"}))
}
