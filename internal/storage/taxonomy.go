package storage

import (
	"context"

	"fixmycity/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var byName = options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

func (s *Service) CreateDepartment(ctx context.Context, d *models.Department) error {
	stamp(&d.CreatedAt, &d.UpdatedAt)
	return s.insert(ctx, CollDepartments, d, func(id primitive.ObjectID) { d.ID = id })
}

func (s *Service) GetDepartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error) {
	var d models.Department
	if err := s.findOne(ctx, CollDepartments, bson.M{"_id": id}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]models.Department, error) {
	out := []models.Department{}
	err := s.findAll(ctx, CollDepartments, bson.M{}, byName, &out)
	return out, err
}

func (s *Service) UpdateDepartment(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return s.update(ctx, CollDepartments, id, set)
}

func (s *Service) CreateBlock(ctx context.Context, b *models.Block) error {
	stamp(&b.CreatedAt, &b.UpdatedAt)
	return s.insert(ctx, CollBlocks, b, func(id primitive.ObjectID) { b.ID = id })
}

func (s *Service) GetBlockByID(ctx context.Context, id primitive.ObjectID) (*models.Block, error) {
	var b models.Block
	if err := s.findOne(ctx, CollBlocks, bson.M{"_id": id}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Service) ListBlocks(ctx context.Context) ([]models.Block, error) {
	out := []models.Block{}
	err := s.findAll(ctx, CollBlocks, bson.M{}, byName, &out)
	return out, err
}

func (s *Service) UpdateBlock(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return s.update(ctx, CollBlocks, id, set)
}

func (s *Service) CreateComplaintType(ctx context.Context, t *models.ComplaintType) error {
	if t.SubTypes == nil {
		t.SubTypes = []models.SubType{}
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	return s.insert(ctx, CollComplaintTypes, t, func(id primitive.ObjectID) { t.ID = id })
}

func (s *Service) GetComplaintTypeByID(ctx context.Context, id primitive.ObjectID) (*models.ComplaintType, error) {
	var t models.ComplaintType
	if err := s.findOne(ctx, CollComplaintTypes, bson.M{"_id": id}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) ListComplaintTypes(ctx context.Context) ([]models.ComplaintType, error) {
	out := []models.ComplaintType{}
	err := s.findAll(ctx, CollComplaintTypes, bson.M{}, byName, &out)
	return out, err
}

func (s *Service) UpdateComplaintType(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return s.update(ctx, CollComplaintTypes, id, set)
}
