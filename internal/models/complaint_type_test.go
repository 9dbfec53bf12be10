package models_test

import (
	"testing"

	"fixmycity/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roadIssues() *models.ComplaintType {
	return &models.ComplaintType{
		Name:     "Road Issues",
		SubTypes: models.NewSubTypes([]string{"Potholes", "Broken footpath", "Blocked drainage", "Street flooding"}),
	}
}

func TestNewSubTypes_AssignsKeysInOrder(t *testing.T) {
	subs := models.NewSubTypes([]string{"Potholes", " ", "Broken footpath"})

	require.Len(t, subs, 2)
	assert.Equal(t, models.SubType{Key: 0, Name: "Potholes"}, subs[0])
	assert.Equal(t, models.SubType{Key: 1, Name: "Broken footpath"}, subs[1])
}

func TestComplaintType_KeyOneIsBrokenFootpath(t *testing.T) {
	ct := roadIssues()

	st, ok := ct.ActiveSubType(1)

	assert.True(t, ok)
	assert.Equal(t, "Broken footpath", st.Name)
}

func TestComplaintType_RetireKeepsKeysStable(t *testing.T) {
	ct := roadIssues()

	require.True(t, ct.RetireSubType(0))
	assert.False(t, ct.RetireSubType(42))

	_, ok := ct.ActiveSubType(0)
	assert.False(t, ok, "retired subtype must not accept new complaints")

	st, ok := ct.SubType(0)
	assert.True(t, ok)
	assert.True(t, st.Retired)

	st, ok = ct.ActiveSubType(1)
	assert.True(t, ok)
	assert.Equal(t, "Broken footpath", st.Name, "retiring must not shift other keys")
	assert.Len(t, ct.ActiveSubTypes(), 3)
}

func TestComplaintType_AppendNeverReusesKeys(t *testing.T) {
	ct := roadIssues()
	ct.RetireSubType(3)

	added := ct.AppendSubType("  Missing signage ")

	assert.Equal(t, 4, added.Key)
	assert.Equal(t, "Missing signage", added.Name)
	assert.Equal(t, 5, ct.NextSubTypeKey())
}

func TestComplaintType_EmptyTaxonomy(t *testing.T) {
	ct := &models.ComplaintType{}

	_, ok := ct.ActiveSubType(0)

	assert.False(t, ok)
	assert.Equal(t, 0, ct.NextSubTypeKey())
	assert.Empty(t, ct.ActiveSubTypes())
}
