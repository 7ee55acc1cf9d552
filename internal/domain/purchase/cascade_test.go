package purchase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/purchases/internal/domain/errors"
	"github.com/cassiomorais/purchases/internal/domain/purchase"
)

type stubDirectory struct {
	thirdParty map[string]bool
	threeD     map[string]bool
}

func (d stubDirectory) IsThirdParty(name string) bool        { return d.thirdParty[name] }
func (d stubDirectory) SupportsThreeDSecure(name string) bool { return d.threeD[name] }

func TestNewCascade_Empty(t *testing.T) {
	_, err := purchase.NewCascade(nil)
	assert.ErrorIs(t, err, errors.ErrEmptyCascade)
}

func TestCascade_CurrentBiller(t *testing.T) {
	c, err := purchase.NewCascade([]string{"a", "b", "c"})
	require.NoError(t, err)

	name, err := c.CurrentBiller()
	require.NoError(t, err)
	assert.Equal(t, "a", name)
}

func TestCascade_AdvanceIsMonotonic(t *testing.T) {
	c, err := purchase.NewCascade([]string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, c.Advance())
	name, err := c.CurrentBiller()
	require.NoError(t, err)
	assert.Equal(t, "b", name)

	assert.ErrorIs(t, c.Advance(), errors.ErrCascadeExhausted)
	assert.True(t, c.IsExhausted())

	_, err = c.CurrentBiller()
	assert.ErrorIs(t, err, errors.ErrCascadeExhausted)
}

func TestCascade_AdvanceResetsSubmitCounter(t *testing.T) {
	c, err := purchase.NewCascade([]string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, c.IncrementSubmit(2))
	require.NoError(t, c.IncrementSubmit(2))
	assert.ErrorIs(t, c.IncrementSubmit(2), errors.ErrMaxSubmitsReached)

	require.NoError(t, c.Advance())
	assert.Equal(t, 0, c.CurrentBillerSubmit)
	require.NoError(t, c.IncrementSubmit(2))
}

func TestCascade_RemoveCurrentBillerForThreeD(t *testing.T) {
	c, err := purchase.NewCascade([]string{"a", "b", "c"})
	require.NoError(t, err)

	require.NoError(t, c.RemoveCurrentBillerForThreeD())
	name, err := c.CurrentBiller()
	require.NoError(t, err)
	assert.Equal(t, "b", name)
	assert.Contains(t, c.RemovedBillersForThreeD, "a")
}

func TestCascade_RemovedBillerNeverReappears(t *testing.T) {
	c, err := purchase.NewCascade([]string{"a", "b"})
	require.NoError(t, err)

	require.NoError(t, c.RemoveCurrentBillerForThreeD())

	// Rewinding the position must not resurrect a removed biller.
	c.CurrentBillerPosition = 0
	name, err := c.CurrentBiller()
	require.NoError(t, err)
	assert.Equal(t, "b", name)
}

func TestCascade_RemoveLastBillerExhausts(t *testing.T) {
	c, err := purchase.NewCascade([]string{"a"})
	require.NoError(t, err)

	assert.ErrorIs(t, c.RemoveCurrentBillerForThreeD(), errors.ErrCascadeExhausted)
	assert.True(t, c.IsExhausted())
}

func TestCascade_IsNextBillerThirdParty(t *testing.T) {
	dir := stubDirectory{thirdParty: map[string]bool{"epoch": true}}

	c, err := purchase.NewCascade([]string{"rocketgate", "epoch"})
	require.NoError(t, err)
	assert.True(t, c.IsNextBillerThirdParty(dir))

	c2, err := purchase.NewCascade([]string{"rocketgate", "netbilling"})
	require.NoError(t, err)
	assert.False(t, c2.IsNextBillerThirdParty(dir))
}

func TestCascade_IsNextBillerThirdPartySkipsRemoved(t *testing.T) {
	dir := stubDirectory{thirdParty: map[string]bool{"epoch": true}}

	c, err := purchase.NewCascade([]string{"rocketgate", "netbilling", "epoch"})
	require.NoError(t, err)
	c.RemovedBillersForThreeD = []string{"netbilling"}
	assert.True(t, c.IsNextBillerThirdParty(dir))
}
