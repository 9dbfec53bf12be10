package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Worker is a field employee who resolves complaints for one department.
type Worker struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name         string              `bson:"name" json:"name"`
	Email        string              `bson:"email" json:"email"`
	EmployeeID   string              `bson:"employeeId" json:"employeeId"`
	Phone        string              `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string              `bson:"passwordHash" json:"-"`
	DepartmentID primitive.ObjectID  `bson:"department" json:"department"`
	BlockID      *primitive.ObjectID `bson:"block,omitempty" json:"block,omitempty"`
	Status       AccountStatus       `bson:"status" json:"status"`
	CreatedBy    *primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy    *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func (w *Worker) Principal() *Principal {
	return &Principal{
		ID:           w.ID,
		Kind:         KindWorker,
		Name:         w.Name,
		Email:        w.Email,
		Status:       w.Status,
		DepartmentID: w.DepartmentID,
		BlockID:      w.BlockID,
	}
}
