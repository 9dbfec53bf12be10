package storage

import (
	"context"
	"time"

	"fixmycity/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ComplaintFilter narrows complaint listings. Zero fields are ignored.
type ComplaintFilter struct {
	UserID       *primitive.ObjectID
	DepartmentID *primitive.ObjectID
	BlockID      *primitive.ObjectID
	TypeID       *primitive.ObjectID
	Status       models.ComplaintStatus
	City         string
	Area         string
	Search       string
	From         *time.Time
	To           *time.Time

	// Near is applied when RadiusMetres > 0.
	Lat, Lng     float64
	RadiusMetres float64
}

func (f ComplaintFilter) build() bson.M {
	b := NewBuilder().
		WhereIf(f.Status != "", "status", f.Status).
		WhereRegex("address.city", f.City).
		WhereRegex("address.area", f.Area).
		SearchAny(f.Search, "description", "subType", "address.line").
		Between("createdAt", f.From, f.To)
	if f.UserID != nil {
		b.Where("user", *f.UserID)
	}
	if f.DepartmentID != nil {
		b.Where("department", *f.DepartmentID)
	}
	if f.BlockID != nil {
		b.Where("block", *f.BlockID)
	}
	if f.TypeID != nil {
		b.Where("complaintType", *f.TypeID)
	}
	if f.RadiusMetres > 0 {
		b.Near("location", f.Lat, f.Lng, f.RadiusMetres)
	}
	return b.Build()
}

// SaveComplaint inserts a new complaint, defaulting its status to Pending.
func (s *Service) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	if c.Status == "" {
		c.Status = models.ComplaintPending
	}
	if c.Images == nil {
		c.Images = []string{}
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	return s.insert(ctx, CollComplaints, c, func(id primitive.ObjectID) { c.ID = id })
}

func (s *Service) GetComplaintByID(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	var c models.Complaint
	if err := s.findOne(ctx, CollComplaints, bson.M{"_id": id}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComplaints returns one page of matching complaints, newest first.
func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter, p Page) ([]models.Complaint, int64, error) {
	out := []models.Complaint{}
	total, err := s.findPage(ctx, CollComplaints, f.build(), p, "createdAt", &out)
	return out, total, err
}

// UpdateComplaint applies set and returns the document after the update.
func (s *Service) UpdateComplaint(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Complaint, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c models.Complaint
	err := s.coll(CollComplaints).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).
		Decode(&c)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
