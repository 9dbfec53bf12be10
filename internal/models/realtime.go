package models

import "time"

// Feed event types pushed to dashboard clients.
const (
	EventComplaintCreated       = "complaint.created"
	EventComplaintStatusChanged = "complaint.status_changed"
)

// ComplaintEvent is published on every complaint state change and fanned
// out to connected admin and worker dashboards.
type ComplaintEvent struct {
	Type         string          `json:"type"`
	ComplaintID  string          `json:"complaintId"`
	DepartmentID string          `json:"departmentId"`
	TypeName     string          `json:"complaintType,omitempty"`
	SubType      string          `json:"subType,omitempty"`
	Status       ComplaintStatus `json:"status"`
	Area         string          `json:"area,omitempty"`
	City         string          `json:"city,omitempty"`
	ActorKind    PrincipalKind   `json:"actorKind"`
	ActorID      string          `json:"actorId"`
	At           time.Time       `json:"at"`
}
