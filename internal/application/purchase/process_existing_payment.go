package purchase

import (
	"context"
	"fmt"

	"github.com/cassiomorais/purchases/internal/billers"
	domainErrors "github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
	"github.com/cassiomorais/purchases/internal/session"
	"github.com/rs/zerolog"
)

// ProcessExistingPaymentUseCase settles a purchase with a stored payment
// template instead of a freshly entered card.
type ProcessExistingPaymentUseCase struct {
	gateway   *sessionGateway
	engine    *chargeEngine
	fraud     FraudAdvisor
	publisher OutcomePublisher
	archiver  Archiver
	cfg       Config
	log       zerolog.Logger
}

// NewProcessExistingPaymentUseCase creates a new ProcessExistingPaymentUseCase.
func NewProcessExistingPaymentUseCase(
	store session.Store,
	billerFactory *billers.Factory,
	fraud FraudAdvisor,
	publisher OutcomePublisher,
	archiver Archiver,
	cfg Config,
	log zerolog.Logger,
) *ProcessExistingPaymentUseCase {
	return &ProcessExistingPaymentUseCase{
		gateway:   newSessionGateway(store, log),
		engine:    &chargeEngine{billerFactory: billerFactory, cfg: cfg, log: log},
		fraud:     fraud,
		publisher: publisher,
		archiver:  archiver,
		cfg:       cfg,
		log:       log,
	}
}

// Execute processes the payment against the selected template.
func (uc *ProcessExistingPaymentUseCase) Execute(ctx context.Context, cmd Command) (result *Result, err error) {
	c, ok := cmd.(ProcessExistingPaymentCommand)
	if !ok {
		return nil, fmt.Errorf("process existing payment: got %T: %w", cmd, domainErrors.ErrInvalidCommand)
	}

	p, err := uc.gateway.load(ctx, c.SessionID)
	if err != nil {
		return nil, err
	}
	defer uc.gateway.persist(ctx, p)

	if !templateKnown(p, c.TemplateID) {
		return nil, domainErrors.NewValidationError("templateId", "not offered to this session")
	}

	info := purchase.PaymentInfo{
		Type:       purchase.PaymentTypeTemplate,
		TemplateID: c.TemplateID,
	}
	return processPayment(ctx, uc.gateway, uc.engine, uc.fraud, uc.publisher, uc.archiver, uc.cfg, uc.log, p, info)
}

func templateKnown(p *purchase.PurchaseProcess, templateID string) bool {
	if len(p.PaymentTemplates) == 0 {
		// Sessions initialized without a template catalog accept any stored
		// template reference; the biller rejects unknown ones.
		return templateID != ""
	}
	for _, t := range p.PaymentTemplates {
		if t.TemplateID == templateID {
			return true
		}
	}
	return false
}
