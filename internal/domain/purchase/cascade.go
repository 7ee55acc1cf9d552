package purchase

import (
	"github.com/cassiomorais/purchases/internal/domain/errors"
)

// BillerDirectory exposes the static biller properties the cascade resolver
// needs. Implemented by the biller factory.
type BillerDirectory interface {
	IsThirdParty(name string) bool
	SupportsThreeDSecure(name string) bool
}

// Cascade is the ordered list of eligible billers for one purchase. The order
// is fixed at session creation and the position only ever advances; billers
// removed for failing a mandated 3-D Secure requirement never reappear.
type Cascade struct {
	Billers                 []string
	CurrentBillerPosition   int
	CurrentBillerSubmit     int
	RemovedBillersForThreeD []string
}

// NewCascade creates a cascade from the precomputed, ordered biller list.
func NewCascade(billers []string) (*Cascade, error) {
	if len(billers) == 0 {
		return nil, errors.ErrEmptyCascade
	}
	return &Cascade{Billers: billers}, nil
}

// CurrentBiller returns the biller currently being attempted.
func (c *Cascade) CurrentBiller() (string, error) {
	for pos := c.CurrentBillerPosition; pos < len(c.Billers); pos++ {
		name := c.Billers[pos]
		if !c.isRemoved(name) {
			return name, nil
		}
	}
	return "", errors.ErrCascadeExhausted
}

// IsNextBillerThirdParty reports whether the biller after the current one is
// an off-session third-party processor.
func (c *Cascade) IsNextBillerThirdParty(dir BillerDirectory) bool {
	for pos := c.CurrentBillerPosition + 1; pos < len(c.Billers); pos++ {
		name := c.Billers[pos]
		if c.isRemoved(name) {
			continue
		}
		return dir.IsThirdParty(name)
	}
	return false
}

// Advance moves to the next eligible biller, incrementing the position and
// resetting the submit counter. Returns ErrCascadeExhausted when no biller
// remains.
func (c *Cascade) Advance() error {
	for pos := c.CurrentBillerPosition + 1; pos < len(c.Billers); pos++ {
		if c.isRemoved(c.Billers[pos]) {
			continue
		}
		c.CurrentBillerPosition = pos
		c.CurrentBillerSubmit = 0
		return nil
	}
	c.CurrentBillerPosition = len(c.Billers)
	c.CurrentBillerSubmit = 0
	return errors.ErrCascadeExhausted
}

// IncrementSubmit counts another attempt against the current biller, bounded
// by the configured per-biller maximum.
func (c *Cascade) IncrementSubmit(maxSubmits int) error {
	if c.CurrentBillerSubmit >= maxSubmits {
		return errors.ErrMaxSubmitsReached
	}
	c.CurrentBillerSubmit++
	return nil
}

// RemoveCurrentBillerForThreeD permanently disqualifies the current biller
// because it cannot satisfy a site-mandated 3-D Secure flow, then advances.
// The removed biller is never retried for the remainder of the session, even
// if a later state resets other counters.
func (c *Cascade) RemoveCurrentBillerForThreeD() error {
	current, err := c.CurrentBiller()
	if err != nil {
		return err
	}
	if !c.isRemoved(current) {
		c.RemovedBillersForThreeD = append(c.RemovedBillersForThreeD, current)
	}
	return c.Advance()
}

// IsExhausted reports whether every biller has been attempted or removed.
func (c *Cascade) IsExhausted() bool {
	_, err := c.CurrentBiller()
	return err != nil
}

func (c *Cascade) isRemoved(name string) bool {
	for _, removed := range c.RemovedBillersForThreeD {
		if removed == name {
			return true
		}
	}
	return false
}
