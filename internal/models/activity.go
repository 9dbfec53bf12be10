package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ActivityRecord is one append-only audit entry, stored in PostgreSQL.
type ActivityRecord struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	ActorKind     PrincipalKind     `gorm:"type:text;not null;index:idx_actor" json:"actorKind"`
	ActorID       string            `gorm:"type:text;not null;index:idx_actor" json:"actorId"`
	ActorName     string            `gorm:"type:text" json:"actorName"`
	Action        string            `gorm:"type:text;not null;index" json:"action"`
	TargetType    string            `gorm:"type:text" json:"targetType"`
	TargetID      string            `gorm:"type:text;index" json:"targetId"`
	Success       bool              `gorm:"not null;default:true" json:"success"`
	Details       datatypes.JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
	ChangedFields pq.StringArray    `gorm:"type:text[]" json:"changedFields,omitempty"`
	IP            string            `gorm:"type:text" json:"ip,omitempty"`
	UserAgent     string            `gorm:"type:text" json:"userAgent,omitempty"`
	RequestID     string            `gorm:"type:text" json:"requestId,omitempty"`
	CreatedAt     time.Time         `gorm:"index" json:"createdAt"`
}
