package service

import (
	"testing"

	"github.com/renthportal/renthportal-sub001/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectConditionTagNoDamageIsExclusive(t *testing.T) {
	starts := [][]string{
		nil,
		{constants.ConditionDamageA},
		{constants.ConditionDamageA, constants.ConditionDirty, constants.ConditionOilLeakage},
		{constants.ConditionNoDamage},
	}
	for _, current := range starts {
		got := SelectConditionTag(current, constants.ConditionNoDamage)
		assert.Equal(t, []string{constants.ConditionNoDamage}, got)
	}

	got := SelectConditionTag([]string{constants.ConditionNoDamage}, constants.ConditionMissing)
	assert.Equal(t, []string{constants.ConditionMissing}, got)

	got = SelectConditionTag([]string{constants.ConditionDamageA}, constants.ConditionDirty)
	assert.Equal(t, []string{constants.ConditionDamageA, constants.ConditionDirty}, got)
}

func TestSelectConditionTagDoesNotMutateInput(t *testing.T) {
	current := []string{constants.ConditionDamageA, constants.ConditionDirty}
	_ = SelectConditionTag(current, constants.ConditionNoDamage)
	_ = DeselectConditionTag(current, constants.ConditionDamageA)
	assert.Equal(t, []string{constants.ConditionDamageA, constants.ConditionDirty}, current)
}

func TestNormalizeConditionTags(t *testing.T) {
	got, err := NormalizeConditionTags([]string{" HASAR_A ", "KIRLI", "HASAR_A", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.ConditionDamageA, constants.ConditionDirty}, got)
	assert.True(t, RequiresConditionDetail(got))

	got, err = NormalizeConditionTags([]string{"KIRLI", "NO DAMAGE"})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.ConditionNoDamage}, got)
	assert.False(t, RequiresConditionDetail(got))

	got, err = NormalizeConditionTags([]string{"NO DAMAGE", "HASAR_C"})
	require.NoError(t, err)
	assert.Equal(t, []string{constants.ConditionDamageC}, got)

	_, err = NormalizeConditionTags([]string{"SCRATCHED"})
	assert.ErrorIs(t, err, ErrUnknownConditionTag)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" Return ")
	require.NoError(t, err)
	assert.Equal(t, DirectionReturn, d)

	_, err = ParseDirection("pickup")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}
