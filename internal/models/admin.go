package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminRole string

const (
	RoleAdmin      AdminRole = "admin"
	RoleSuperAdmin AdminRole = "superadmin"
)

// Admin is a municipal administrator account.
type Admin struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Email        string              `bson:"email" json:"email"`
	PasswordHash string              `bson:"passwordHash" json:"-"`
	Role         AdminRole           `bson:"role" json:"role"`
	Status       AccountStatus       `bson:"status" json:"status"`
	ProfileImage string              `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	CreatedBy    *primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	LastLoginAt  *time.Time          `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (a *Admin) Principal() *Principal {
	return &Principal{ID: a.ID, Kind: KindAdmin, Name: a.Name, Email: a.Email, Role: a.Role, Status: a.Status}
}
