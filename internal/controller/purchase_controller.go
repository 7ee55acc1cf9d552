package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	app "github.com/cassiomorais/purchases/internal/application/purchase"
	"github.com/cassiomorais/purchases/internal/digest"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
)

// UseCase is the common execution contract of the orchestration handlers.
type UseCase interface {
	Execute(ctx context.Context, cmd app.Command) (*app.Result, error)
}

// PurchaseController handles purchase orchestration HTTP requests. Every
// response body that carries purchase state is signed with the session's
// public key index.
type PurchaseController struct {
	initUC     UseCase
	newUC      UseCase
	existingUC UseCase
	threeDUC   UseCase
	postbackUC UseCase
	rebillUC   UseCase
	signer     *digest.Signer
}

// NewPurchaseController creates a new PurchaseController.
func NewPurchaseController(
	initUC, newUC, existingUC, threeDUC, postbackUC, rebillUC UseCase,
	signer *digest.Signer,
) *PurchaseController {
	return &PurchaseController{
		initUC:     initUC,
		newUC:      newUC,
		existingUC: existingUC,
		threeDUC:   threeDUC,
		postbackUC: postbackUC,
		rebillUC:   rebillUC,
		signer:     signer,
	}
}

// Init handles POST /api/v1/purchase/init
func (h *PurchaseController) Init(w http.ResponseWriter, r *http.Request) {
	var req InitPurchaseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	crossSells := make([]app.InitItem, 0, len(req.CrossSells))
	for _, cs := range req.CrossSells {
		crossSells = append(crossSells, toInitItem(cs))
	}

	cmd := app.InitPurchaseCommand{
		EntrySiteID:    req.EntrySiteID,
		Currency:       req.Currency,
		PublicKeyIndex: req.PublicKeyIndex,
		MainItem:       toInitItem(req.MainItem),
		CrossSells:     crossSells,
		User: app.UserDetails{
			Email:     req.User.Email,
			FirstName: req.User.FirstName,
			LastName:  req.User.LastName,
			Country:   req.User.Country,
			Zip:       req.User.Zip,
			IPAddress: req.User.IPAddress,
			Username:  req.User.Username,
		},
		RedirectURL:    req.RedirectURL,
		PostbackURL:    req.PostbackURL,
		TrafficSource:  req.TrafficSource,
		ExistingMember: req.ExistingMember,
	}

	result, err := h.initUC.Execute(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}

	h.respond(w, http.StatusCreated, result)
}

// Process handles POST /api/v1/purchase/{sessionId}/process
func (h *PurchaseController) Process(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req ProcessRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var (
		result *app.Result
		err    error
	)
	switch {
	case req.TemplateID != "" && req.CardToken != "":
		writeError(w, domainErrors.NewValidationError("body", "card_token and template_id are mutually exclusive"))
		return
	case req.TemplateID != "":
		result, err = h.existingUC.Execute(r.Context(), app.ProcessExistingPaymentCommand{
			SessionID:  sessionID,
			TemplateID: req.TemplateID,
		})
	case req.CardToken != "":
		result, err = h.newUC.Execute(r.Context(), app.ProcessNewPaymentCommand{
			SessionID:    sessionID,
			CardToken:    req.CardToken,
			CardBin:      req.CardBin,
			CardLastFour: req.CardLastFour,
		})
	default:
		writeError(w, domainErrors.NewValidationError("body", "either card_token or template_id is required"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, result)
}

// CompleteThreeD handles POST /api/v1/purchase/{sessionId}/threed-complete
func (h *PurchaseController) CompleteThreeD(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req ThreeDCompleteRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.threeDUC.Execute(r.Context(), app.CompleteThreeDCommand{
		SessionID:           sessionID,
		TransactionID:       req.TransactionID,
		DeviceDetectionOnly: req.DeviceDetectionOnly,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, result)
}

// Postback handles POST /api/v1/purchase/{sessionId}/postback
func (h *PurchaseController) Postback(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req PostbackRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.postbackUC.Execute(r.Context(), app.ThirdPartyPostbackCommand{
		SessionID:     sessionID,
		TransactionID: req.TransactionID,
		Approved:      req.Approved,
		BillerTxID:    req.BillerTxID,
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, result)
}

// Rebill handles POST /api/v1/purchase/{sessionId}/rebill
func (h *PurchaseController) Rebill(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req RebillRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.rebillUC.Execute(r.Context(), app.ThirdPartyRebillCommand{
		SessionID:  sessionID,
		BillerTxID: req.BillerTxID,
		Approved:   req.Approved,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.respond(w, http.StatusOK, result)
}

func (h *PurchaseController) respond(w http.ResponseWriter, status int, result *app.Result) {
	resp, err := FromResult(result)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSigned(w, status, h.signer, resp, result.PublicKeyIndex)
}
