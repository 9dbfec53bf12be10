package complaint_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
	"testing"

	"fixmycity/backend/internal/models"
	"fixmycity/backend/internal/storage"
	"fixmycity/backend/internal/upload"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetComplaintTypeByID(ctx context.Context, id primitive.ObjectID) (*models.ComplaintType, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ComplaintType), args.Error(1)
}

func (m *MockStore) GetDepartmentByID(ctx context.Context, id primitive.ObjectID) (*models.Department, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Department), args.Error(1)
}

func (m *MockStore) GetBlockByID(ctx context.Context, id primitive.ObjectID) (*models.Block, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Block), args.Error(1)
}

func (m *MockStore) SaveComplaint(ctx context.Context, c *models.Complaint) error {
	args := m.Called(c)
	if args.Error(0) == nil && c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	return args.Error(0)
}

func (m *MockStore) GetComplaintByID(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

func (m *MockStore) ListComplaints(ctx context.Context, f storage.ComplaintFilter, p storage.Page) ([]models.Complaint, int64, error) {
	args := m.Called(f, p)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Complaint), args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) UpdateComplaint(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Complaint, error) {
	args := m.Called(id, set)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Complaint), args.Error(1)
}

// fakeUploader records uploads and deletions. It is safe for the
// concurrent calls made by upload.UploadAll.
type fakeUploader struct {
	mu       sync.Mutex
	fail     bool
	uploaded []string
	deleted  []string
}

func (f *fakeUploader) Upload(ctx context.Context, file upload.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("image host unavailable")
	}
	url := "https://img.example/" + strconv.Itoa(len(f.uploaded)) + "-" + file.Name
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeUploader) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *fakeUploader) uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploaded)
}

type fakePublisher struct {
	mu     sync.Mutex
	err    error
	events []models.ComplaintEvent
}

func (p *fakePublisher) Publish(ctx context.Context, ev models.ComplaintEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

var pngData = []byte("\x89PNG\r\n\x1a\n0000")

// images builds n multipart PNG attachments.
func images(t *testing.T, n int) []*multipart.FileHeader {
	t.Helper()
	names := make([]string, n)
	for i := range names {
		names[i] = "photo" + strconv.Itoa(i) + ".png"
	}
	return attachments(t, "image/png", pngData, names...)
}

// attachments builds one multipart part per name, all with the same body.
func attachments(t *testing.T, contentType string, data []byte, names ...string) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = w.Write(data)
	}
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["images"]
}
