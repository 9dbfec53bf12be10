package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplaintStatus is the resolution state of a complaint.
type ComplaintStatus string

const (
	ComplaintPending    ComplaintStatus = "Pending"
	ComplaintInProgress ComplaintStatus = "InProgress"
	ComplaintResolved   ComplaintStatus = "Resolved"
)

func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintPending, ComplaintInProgress, ComplaintResolved:
		return true
	}
	return false
}

// Address is the free-form postal location of a complaint.
type Address struct {
	Line    string `bson:"line,omitempty" json:"line,omitempty"`
	Area    string `bson:"area" json:"area"`
	City    string `bson:"city" json:"city"`
	Pincode string `bson:"pincode,omitempty" json:"pincode,omitempty"`
}

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }
func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }

// Complaint is a citizen report stored in the user_complaints collection.
// SubType holds the name captured at submission; SubTypeKey is the stable
// key it was resolved from.
type Complaint struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID  `bson:"user" json:"user"`
	TypeID         primitive.ObjectID  `bson:"complaintType" json:"complaintType"`
	DepartmentID   primitive.ObjectID  `bson:"department" json:"department"`
	BlockID        *primitive.ObjectID `bson:"block,omitempty" json:"block,omitempty"`
	SubTypeKey     int                 `bson:"subTypeKey" json:"subTypeKey"`
	SubType        string              `bson:"subType" json:"subType"`
	Description    string              `bson:"description" json:"description"`
	Address        Address             `bson:"address" json:"address"`
	Location       GeoPoint            `bson:"location" json:"location"`
	Images         []string            `bson:"images" json:"images"`
	Status         ComplaintStatus     `bson:"status" json:"status"`
	AssignedWorker *primitive.ObjectID `bson:"assignedWorker,omitempty" json:"assignedWorker,omitempty"`
	ResolutionNote string              `bson:"resolutionNote,omitempty" json:"resolutionNote,omitempty"`
	ResolvedAt     *time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ComplaintView is the flat shape returned by listing endpoints.
type ComplaintView struct {
	ID             string          `json:"id"`
	TypeID         string          `json:"complaintTypeId"`
	TypeName       string          `json:"complaintType"`
	DepartmentID   string          `json:"departmentId"`
	DepartmentName string          `json:"department,omitempty"`
	BlockID        string          `json:"blockId,omitempty"`
	SubTypeKey     int             `json:"subTypeKey"`
	SubType        string          `json:"subType"`
	Description    string          `json:"description"`
	Address        Address         `json:"address"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Images         []string        `json:"images"`
	Status         ComplaintStatus `json:"status"`
	ResolutionNote string          `json:"resolutionNote,omitempty"`
	ResolvedAt     *time.Time      `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// View flattens c. When ct is known the subtype label is resolved by key
// against it; a retired or missing key keeps the name captured at
// submission.
func (c *Complaint) View(ct *ComplaintType, dept *Department) ComplaintView {
	v := ComplaintView{
		ID:             c.ID.Hex(),
		TypeID:         c.TypeID.Hex(),
		DepartmentID:   c.DepartmentID.Hex(),
		SubTypeKey:     c.SubTypeKey,
		SubType:        c.SubType,
		Description:    c.Description,
		Address:        c.Address,
		Latitude:       c.Location.Lat(),
		Longitude:      c.Location.Lng(),
		Images:         c.Images,
		Status:         c.Status,
		ResolutionNote: c.ResolutionNote,
		ResolvedAt:     c.ResolvedAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.BlockID != nil {
		v.BlockID = c.BlockID.Hex()
	}
	if v.Images == nil {
		v.Images = []string{}
	}
	if ct != nil {
		v.TypeName = ct.Name
		if st, ok := ct.ActiveSubType(c.SubTypeKey); ok {
			v.SubType = st.Name
		}
	}
	if dept != nil {
		v.DepartmentName = dept.Name
	}
	return v
}
