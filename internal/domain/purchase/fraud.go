package purchase

// FraudAdvice is a point-in-time advisory signal attached at init or process
// time. Immutable once attached to a step; a new step may attach a new advice.
type FraudAdvice struct {
	Blacklist             bool
	InitCaptchaAdvised    bool
	ProcessCaptchaAdvised bool
	ForceThreeD           bool
	DetectThreeDUsage     bool
}

// FraudRecommendationSeverity classifies a fraud recommendation.
type FraudRecommendationSeverity string

const (
	SeverityAllow FraudRecommendationSeverity = "allow"
	SeverityBlock FraudRecommendationSeverity = "block"
)

// FraudRecommendation is an advisory record from the fraud service.
type FraudRecommendation struct {
	Severity FraudRecommendationSeverity
	Code     string
	Message  string
}

// IsHardBlock reports whether the recommendation mandates blocking the purchase.
func (r FraudRecommendation) IsHardBlock() bool {
	return r.Severity == SeverityBlock
}

// FraudRecommendationCollection holds the recommendations attached to a step.
type FraudRecommendationCollection []FraudRecommendation

// HasHardBlock reports whether any recommendation mandates a block.
func (c FraudRecommendationCollection) HasHardBlock() bool {
	for _, r := range c {
		if r.IsHardBlock() {
			return true
		}
	}
	return false
}
