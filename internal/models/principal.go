package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// PrincipalKind identifies which credential scheme an actor authenticated with.
type PrincipalKind string

const (
	KindAdmin  PrincipalKind = "admin"
	KindWorker PrincipalKind = "worker"
	KindUser   PrincipalKind = "user"
)

// AccountStatus is shared by admins, workers and users. Only active
// accounts may authenticate.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusRemoved   AccountStatus = "removed"
)

// Valid reports whether s is one of the known account statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusRemoved:
		return true
	}
	return false
}

// Principal is the authenticated actor attached to a request.
type Principal struct {
	ID     primitive.ObjectID
	Kind   PrincipalKind
	Name   string
	Email  string
	Role   AdminRole // admins only
	Status AccountStatus

	// DepartmentID scopes worker access; zero for other kinds.
	DepartmentID primitive.ObjectID
	BlockID      *primitive.ObjectID
}
