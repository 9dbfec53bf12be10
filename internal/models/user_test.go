package models_test

import (
	"reflect"
	"testing"
	"time"

	"fixmycity/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestPrincipal_FromEachKind verifies that every account type produces a principal of its own kind.
func TestPrincipal_FromEachKind(t *testing.T) {
	dept := primitive.NewObjectID()

	admin := &models.Admin{ID: primitive.NewObjectID(), Name: "A", Role: models.RoleSuperAdmin, Status: models.StatusActive}
	worker := &models.Worker{ID: primitive.NewObjectID(), Name: "W", DepartmentID: dept, Status: models.StatusActive}
	user := &models.User{ID: primitive.NewObjectID(), Name: "U", Status: models.StatusSuspended}

	assert.Equal(t, models.KindAdmin, admin.Principal().Kind)
	assert.Equal(t, models.RoleSuperAdmin, admin.Principal().Role)

	assert.Equal(t, models.KindWorker, worker.Principal().Kind)
	assert.Equal(t, dept, worker.Principal().DepartmentID, "worker principal must carry its department")

	assert.Equal(t, models.KindUser, user.Principal().Kind)
	assert.Equal(t, models.StatusSuspended, user.Principal().Status)
}

// TestAccountStatus_Valid checks the account status enum.
func TestAccountStatus_Valid(t *testing.T) {
	assert.True(t, models.StatusActive.Valid())
	assert.True(t, models.StatusSuspended.Valid())
	assert.True(t, models.StatusRemoved.Valid())
	assert.False(t, models.AccountStatus("banned").Valid())
	assert.False(t, models.AccountStatus("").Valid())
}

// TestUserStructTags catches accidental removal of the password mask.
func TestUserStructTags(t *testing.T) {
	for _, v := range []any{models.User{}, models.Admin{}, models.Worker{}} {
		typ := reflect.TypeOf(v)
		field, found := typ.FieldByName("PasswordHash")
		assert.True(t, found, typ.Name())
		assert.Equal(t, "-", field.Tag.Get("json"), "%s password hash must never be serialized", typ.Name())
	}

	emailField, _ := reflect.TypeOf(models.User{}).FieldByName("Email")
	assert.Equal(t, "email", emailField.Tag.Get("bson"))
}

// TestComplaintStatus_Valid checks the complaint status enum.
func TestComplaintStatus_Valid(t *testing.T) {
	tests := []struct {
		status models.ComplaintStatus
		valid  bool
	}{
		{models.ComplaintPending, true},
		{models.ComplaintInProgress, true},
		{models.ComplaintResolved, true},
		{"In Progress", false},
		{"resolved", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
		})
	}
}

// TestGeoPoint_Order verifies GeoJSON ordering is [lng, lat].
func TestGeoPoint_Order(t *testing.T) {
	p := models.NewGeoPoint(12.97, 77.59)

	assert.Equal(t, "Point", p.Type)
	assert.Equal(t, [2]float64{77.59, 12.97}, p.Coordinates)
	assert.Equal(t, 12.97, p.Lat())
	assert.Equal(t, 77.59, p.Lng())
}

// TestComplaintView_ResolvesSubTypeByKey verifies listings follow the current taxonomy by key.
func TestComplaintView_ResolvesSubTypeByKey(t *testing.T) {
	ct := &models.ComplaintType{
		ID:       primitive.NewObjectID(),
		Name:     "Road Issues",
		SubTypes: models.NewSubTypes([]string{"Potholes", "Broken footpath"}),
	}
	c := &models.Complaint{
		ID:         primitive.NewObjectID(),
		TypeID:     ct.ID,
		SubTypeKey: 1,
		SubType:    "Broken footpath",
		Location:   models.NewGeoPoint(1, 2),
		CreatedAt:  time.Now(),
	}

	// Renaming the subtype is reflected in listings.
	ct.SubTypes[1].Name = "Damaged footpath"
	v := c.View(ct, &models.Department{Name: "Roads"})
	assert.Equal(t, "Damaged footpath", v.SubType)
	assert.Equal(t, "Road Issues", v.TypeName)
	assert.Equal(t, "Roads", v.DepartmentName)
	assert.NotNil(t, v.Images, "images must serialize as an empty list")

	// Retiring it keeps the captured name.
	ct.RetireSubType(1)
	v = c.View(ct, nil)
	assert.Equal(t, "Broken footpath", v.SubType)

	// Without a type the stored name is used as-is.
	v = c.View(nil, nil)
	assert.Equal(t, "Broken footpath", v.SubType)
	assert.Empty(t, v.TypeName)
}
