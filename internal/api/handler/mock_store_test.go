package handler_test

import (
	"context"
	"errors"
	"sync"

	"fixmycity/backend/internal/activity"
	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/storage"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockStorage is a testify mock of storage.Storage.
type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func ret[T any](args mock.Arguments) (*T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func page[T any](args mock.Arguments) ([]T, int64, error) {
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]T), args.Get(1).(int64), args.Error(2)
}

func list[T any](args mock.Arguments) ([]T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockStorage) CreateAdmin(ctx context.Context, a *models.Admin) error {
	args := m.Called(a)
	if args.Error(0) == nil {
		a.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}
func (m *MockStorage) GetAdminByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	return ret[models.Admin](m.Called(id))
}
func (m *MockStorage) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return ret[models.Admin](m.Called(email))
}
func (m *MockStorage) ListAdmins(ctx context.Context, f storage.PrincipalFilter, p storage.Page) ([]models.Admin, int64, error) {
	return page[models.Admin](m.Called(f, p))
}
func (m *MockStorage) UpdateAdmin(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return m.Called(id, set).Error(0)
}

func (m *MockStorage) CreateWorker(ctx context.Context, w *models.Worker) error {
	args := m.Called(w)
	if args.Error(0) == nil {
		w.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}
func (m *MockStorage) GetWorkerByID(ctx context.Context, id primitive.ObjectID) (*models.Worker, error) {
	return ret[models.Worker](m.Called(id))
}
func (m *MockStorage) GetWorkerByEmail(ctx context.Context, email string) (*models.Worker, error) {
	return ret[models.Worker](m.Called(email))
}
func (m *MockStorage) ListWorkers(ctx context.Context, f storage.PrincipalFilter, p storage.Page) ([]models.Worker, int64, error) {
	return page[models.Worker](m.Called(f, p))
}
func (m *MockStorage) UpdateWorker(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return m.Called(id, set).Error(0)
}

func (m *MockStorage) CreateUser(ctx context.Context, u *models.User) error {
	args := m.Called(u)
	if args.Error(0) == nil {
		u.ID = primitive.NewObjectID()
		u.Status = models.StatusActive
	}
	return args.Error(0)
}
func (m *MockStorage) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return ret[models.User](m.Called(id))
}
func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return ret[models.User](m.Called(email))
}
func (m *MockStorage) ListUsers(ctx context.Context, f storage.PrincipalFilter, p storage.Page) ([]models.User, int64, error) {
	return page[models.User](m.Called(f, p))
}
func (m *MockStorage) UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return m.Called(id, set).Error(0)
}
func (m *MockStorage) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(id).Error(0)
}

func (m *MockStorage) CreateDepartment(ctx context.Context, d *models.Department) error {
	args := m.Called(d)
	if args.Error(0) == nil {
		d.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}
func (m *MockStorage) GetDepartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error) {
	return ret[models.Department](m.Called(id))
}
func (m *MockStorage) ListDepartments(ctx context.Context) ([]models.Department, error) {
	return list[models.Department](m.Called())
}
func (m *MockStorage) UpdateDepartment(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return m.Called(id, set).Error(0)
}

func (m *MockStorage) CreateBlock(ctx context.Context, b *models.Block) error {
	args := m.Called(b)
	if args.Error(0) == nil {
		b.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}
func (m *MockStorage) GetBlockByID(ctx context.Context, id primitive.ObjectID) (*models.Block, error) {
	return ret[models.Block](m.Called(id))
}
func (m *MockStorage) ListBlocks(ctx context.Context) ([]models.Block, error) {
	return list[models.Block](m.Called())
}
func (m *MockStorage) UpdateBlock(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return m.Called(id, set).Error(0)
}

func (m *MockStorage) CreateComplaintType(ctx context.Context, t *models.ComplaintType) error {
	args := m.Called(t)
	if args.Error(0) == nil {
		t.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}
func (m *MockStorage) GetComplaintTypeByID(ctx context.Context, id primitive.ObjectID) (*models.ComplaintType, error) {
	return ret[models.ComplaintType](m.Called(id))
}
func (m *MockStorage) ListComplaintTypes(ctx context.Context) ([]models.ComplaintType, error) {
	return list[models.ComplaintType](m.Called())
}
func (m *MockStorage) UpdateComplaintType(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	return m.Called(id, set).Error(0)
}

func (m *MockStorage) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	args := m.Called(c)
	if args.Error(0) == nil {
		c.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}
func (m *MockStorage) GetComplaintByID(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	return ret[models.Complaint](m.Called(id))
}
func (m *MockStorage) ListComplaints(ctx context.Context, f storage.ComplaintFilter, p storage.Page) ([]models.Complaint, int64, error) {
	return page[models.Complaint](m.Called(f, p))
}
func (m *MockStorage) UpdateComplaint(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Complaint, error) {
	return ret[models.Complaint](m.Called(id, set))
}

// memActivity is an in-memory activity.Store. When failing is set every
// write errors.
type memActivity struct {
	mu      sync.Mutex
	records []models.ActivityRecord
	failing bool
	filter  activity.Filter
}

func (s *memActivity) Save(ctx context.Context, rec *models.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("postgres unavailable")
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *memActivity) List(ctx context.Context, f activity.Filter, page, limit int) ([]models.ActivityRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
	return s.records, int64(len(s.records)), nil
}

func (s *memActivity) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Action)
	}
	return out
}
