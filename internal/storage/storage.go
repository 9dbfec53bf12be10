// Package storage persists FixMyCity documents in MongoDB.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document already exists")
	ErrInvalidID = errors.New("invalid identifier")
)

// Collection names.
const (
	CollAdmins         = "admins"
	CollWorkers        = "workers"
	CollUsers          = "users"
	CollDepartments    = "departments"
	CollBlocks         = "blocks"
	CollComplaintTypes = "complaint_types"
	CollComplaints     = "user_complaints"
)

// Storage is everything the services and handlers need from the document
// store.
type Storage interface {
	CreateAdmin(ctx context.Context, a *models.Admin) error
	GetAdminByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	ListAdmins(ctx context.Context, f PrincipalFilter, p Page) ([]models.Admin, int64, error)
	UpdateAdmin(ctx context.Context, id primitive.ObjectID, set bson.M) error

	CreateWorker(ctx context.Context, w *models.Worker) error
	GetWorkerByID(ctx context.Context, id primitive.ObjectID) (*models.Worker, error)
	GetWorkerByEmail(ctx context.Context, email string) (*models.Worker, error)
	ListWorkers(ctx context.Context, f PrincipalFilter, p Page) ([]models.Worker, int64, error)
	UpdateWorker(ctx context.Context, id primitive.ObjectID, set bson.M) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, f PrincipalFilter, p Page) ([]models.User, int64, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) error
	DeleteUser(ctx context.Context, id primitive.ObjectID) error

	CreateDepartment(ctx context.Context, d *models.Department) error
	GetDepartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	UpdateDepartment(ctx context.Context, id primitive.ObjectID, set bson.M) error

	CreateBlock(ctx context.Context, b *models.Block) error
	GetBlockByID(ctx context.Context, id primitive.ObjectID) (*models.Block, error)
	ListBlocks(ctx context.Context) ([]models.Block, error)
	UpdateBlock(ctx context.Context, id primitive.ObjectID, set bson.M) error

	CreateComplaintType(ctx context.Context, t *models.ComplaintType) error
	GetComplaintTypeByID(ctx context.Context, id primitive.ObjectID) (*models.ComplaintType, error)
	ListComplaintTypes(ctx context.Context) ([]models.ComplaintType, error)
	UpdateComplaintType(ctx context.Context, id primitive.ObjectID, set bson.M) error

	SaveComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaintByID(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f ComplaintFilter, p Page) ([]models.Complaint, int64, error)
	UpdateComplaint(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Complaint, error)
}

// Service is the MongoDB implementation of Storage.
type Service struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials uri, pings the server and ensures indexes on dbName.
func Connect(ctx context.Context, uri, dbName string) (*Service, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewStorageService(client, dbName)
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewStorageService wraps an already connected client.
func NewStorageService(client *mongo.Client, dbName string) *Service {
	return &Service{Client: client, DB: client.Database(dbName)}
}

func (s *Service) Disconnect(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

func (s *Service) coll(name string) *mongo.Collection {
	return s.DB.Collection(name)
}

// EnsureIndexes creates the unique and geo indexes the data model relies on.
func (s *Service) EnsureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}

	indexes := map[string][]mongo.IndexModel{
		CollAdmins: {unique(bson.D{{Key: "email", Value: 1}})},
		CollWorkers: {
			unique(bson.D{{Key: "email", Value: 1}}),
			unique(bson.D{{Key: "employeeId", Value: 1}}),
			{Keys: bson.D{{Key: "department", Value: 1}}},
		},
		CollUsers:          {unique(bson.D{{Key: "email", Value: 1}})},
		CollDepartments:    {unique(bson.D{{Key: "name", Value: 1}})},
		CollBlocks:         {unique(bson.D{{Key: "name", Value: 1}})},
		CollComplaintTypes: {unique(bson.D{{Key: "name", Value: 1}})},
		CollComplaints: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "department", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "department", Value: 1}, {Key: "block", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for name, idx := range indexes {
		if _, err := s.coll(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	logging.Debug().Int("collections", len(indexes)).Msg("mongo indexes ensured")
	return nil
}

// ParseID converts a hex string to an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// translate maps driver errors to package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func (s *Service) insert(ctx context.Context, coll string, doc interface{}, setID func(primitive.ObjectID)) error {
	res, err := s.coll(coll).InsertOne(ctx, doc)
	if err != nil {
		return translate(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		setID(oid)
		return nil
	}
	return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
}

func (s *Service) findOne(ctx context.Context, coll string, filter bson.M, out interface{}) error {
	return translate(s.coll(coll).FindOne(ctx, filter).Decode(out))
}

func (s *Service) findAll(ctx context.Context, coll string, filter bson.M, opts *options.FindOptions, out interface{}) error {
	cursor, err := s.coll(coll).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func (s *Service) findPage(ctx context.Context, coll string, filter bson.M, p Page, sortKey string, out interface{}) (int64, error) {
	total, err := s.coll(coll).CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := s.findAll(ctx, coll, filter, p.FindOptions(sortKey, true), out); err != nil {
		return 0, err
	}
	return total, nil
}

// update applies $set plus an updatedAt bump and reports ErrNotFound when
// nothing matched.
func (s *Service) update(ctx context.Context, coll string, id primitive.ObjectID, set bson.M) error {
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now().UTC()
	res, err := s.coll(coll).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
