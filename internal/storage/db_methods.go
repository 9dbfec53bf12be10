package storage

import (
	"context"
	"strings"

	"fixmycity/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrincipalFilter narrows admin, worker and user listings.
type PrincipalFilter struct {
	Status       models.AccountStatus
	Search       string
	DepartmentID *primitive.ObjectID // workers only
	BlockID      *primitive.ObjectID // workers only
}

func (f PrincipalFilter) build(searchKeys ...string) bson.M {
	b := NewBuilder().
		WhereIf(f.Status != "", "status", f.Status).
		SearchAny(f.Search, searchKeys...)
	if f.DepartmentID != nil {
		b.Where("department", *f.DepartmentID)
	}
	if f.BlockID != nil {
		b.Where("block", *f.BlockID)
	}
	return b.Build()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// --- admins ---

func (s *Service) CreateAdmin(ctx context.Context, a *models.Admin) error {
	a.Email = normalizeEmail(a.Email)
	if a.Status == "" {
		a.Status = models.StatusActive
	}
	if a.Role == "" {
		a.Role = models.RoleAdmin
	}
	stamp(&a.CreatedAt, &a.UpdatedAt)
	return s.insert(ctx, CollAdmins, a, func(id primitive.ObjectID) { a.ID = id })
}

func (s *Service) GetAdminByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	var a models.Admin
	if err := s.findOne(ctx, CollAdmins, bson.M{"_id": id}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := s.findOne(ctx, CollAdmins, bson.M{"email": normalizeEmail(email)}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) ListAdmins(ctx context.Context, f PrincipalFilter, p Page) ([]models.Admin, int64, error) {
	var out []models.Admin
	total, err := s.findPage(ctx, CollAdmins, f.build("name", "email"), p, "createdAt", &out)
	return out, total, err
}

func (s *Service) UpdateAdmin(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return s.update(ctx, CollAdmins, id, set)
}

// --- workers ---

func (s *Service) CreateWorker(ctx context.Context, w *models.Worker) error {
	w.Email = normalizeEmail(w.Email)
	if w.Status == "" {
		w.Status = models.StatusActive
	}
	stamp(&w.CreatedAt, &w.UpdatedAt)
	return s.insert(ctx, CollWorkers, w, func(id primitive.ObjectID) { w.ID = id })
}

func (s *Service) GetWorkerByID(ctx context.Context, id primitive.ObjectID) (*models.Worker, error) {
	var w models.Worker
	if err := s.findOne(ctx, CollWorkers, bson.M{"_id": id}, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Service) GetWorkerByEmail(ctx context.Context, email string) (*models.Worker, error) {
	var w models.Worker
	if err := s.findOne(ctx, CollWorkers, bson.M{"email": normalizeEmail(email)}, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Service) ListWorkers(ctx context.Context, f PrincipalFilter, p Page) ([]models.Worker, int64, error) {
	var out []models.Worker
	total, err := s.findPage(ctx, CollWorkers, f.build("name", "email", "employeeId"), p, "createdAt", &out)
	return out, total, err
}

func (s *Service) UpdateWorker(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return s.update(ctx, CollWorkers, id, set)
}

// --- users ---

func (s *Service) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	return s.insert(ctx, CollUsers, u, func(id primitive.ObjectID) { u.ID = id })
}

func (s *Service) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.findOne(ctx, CollUsers, bson.M{"_id": id}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.findOne(ctx, CollUsers, bson.M{"email": normalizeEmail(email)}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) ListUsers(ctx context.Context, f PrincipalFilter, p Page) ([]models.User, int64, error) {
	var out []models.User
	total, err := s.findPage(ctx, CollUsers, f.build("name", "email", "phone"), p, "createdAt", &out)
	return out, total, err
}

func (s *Service) UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return s.update(ctx, CollUsers, id, set)
}

// DeleteUser hard-deletes a user. Their complaints are kept.
func (s *Service) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll(CollUsers).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
