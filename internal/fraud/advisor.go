// Package fraud provides the client-side view of the external fraud-score
// service. The real service is an external collaborator; RuleAdvisor is a
// deterministic local implementation used for tests and environments without
// the service.
package fraud

import (
	"context"
	"strings"

	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

// RuleAdvisor applies a static blacklist and per-site 3-D Secure forcing
// rules.
type RuleAdvisor struct {
	blacklistedEmails  map[string]struct{}
	blacklistedIPs     map[string]struct{}
	forceThreeDSites   map[string]struct{}
	captchaOnInitSites map[string]struct{}
}

// RuleAdvisorConfig configures the local advisor.
type RuleAdvisorConfig struct {
	BlacklistedEmails  []string
	BlacklistedIPs     []string
	ForceThreeDSites   []string
	CaptchaOnInitSites []string
}

// NewRuleAdvisor creates a RuleAdvisor.
func NewRuleAdvisor(cfg RuleAdvisorConfig) *RuleAdvisor {
	return &RuleAdvisor{
		blacklistedEmails:  toSet(cfg.BlacklistedEmails),
		blacklistedIPs:     toSet(cfg.BlacklistedIPs),
		forceThreeDSites:   toSet(cfg.ForceThreeDSites),
		captchaOnInitSites: toSet(cfg.CaptchaOnInitSites),
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

// AdviseOnInit returns the advice for the init step.
func (a *RuleAdvisor) AdviseOnInit(_ context.Context, user purchase.UserInfo, entrySiteID string) (purchase.FraudAdvice, purchase.FraudRecommendationCollection, error) {
	advice := purchase.FraudAdvice{
		Blacklist:          a.isBlacklisted(user),
		ForceThreeD:        a.has(a.forceThreeDSites, entrySiteID),
		DetectThreeDUsage:  a.has(a.forceThreeDSites, entrySiteID),
		InitCaptchaAdvised: a.has(a.captchaOnInitSites, entrySiteID),
	}
	var recs purchase.FraudRecommendationCollection
	if advice.Blacklist {
		recs = append(recs, purchase.FraudRecommendation{
			Severity: purchase.SeverityBlock,
			Code:     "100",
			Message:  "Blacklist",
		})
	}
	return advice, recs, nil
}

// AdviseOnProcess returns the advice for the process step.
func (a *RuleAdvisor) AdviseOnProcess(_ context.Context, user purchase.UserInfo, entrySiteID string) (purchase.FraudAdvice, purchase.FraudRecommendationCollection, error) {
	advice := purchase.FraudAdvice{
		Blacklist:             a.isBlacklisted(user),
		ForceThreeD:           a.has(a.forceThreeDSites, entrySiteID),
		DetectThreeDUsage:     a.has(a.forceThreeDSites, entrySiteID),
		ProcessCaptchaAdvised: false,
	}
	var recs purchase.FraudRecommendationCollection
	if advice.Blacklist {
		recs = append(recs, purchase.FraudRecommendation{
			Severity: purchase.SeverityBlock,
			Code:     "100",
			Message:  "Blacklist",
		})
	}
	return advice, recs, nil
}

func (a *RuleAdvisor) isBlacklisted(user purchase.UserInfo) bool {
	return a.has(a.blacklistedEmails, user.Email) || a.has(a.blacklistedIPs, user.IPAddress)
}

func (a *RuleAdvisor) has(set map[string]struct{}, key string) bool {
	_, ok := set[strings.ToLower(key)]
	return ok
}
