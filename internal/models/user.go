package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a citizen account that files complaints.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Status       AccountStatus      `bson:"status" json:"status"`
	Language     string             `bson:"language,omitempty" json:"language,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) Principal() *Principal {
	return &Principal{ID: u.ID, Kind: KindUser, Name: u.Name, Email: u.Email, Status: u.Status}
}
