package upload_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fixmycity/backend/internal/upload"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type fakeUploader struct {
	mu      sync.Mutex
	failOn  string
	deleted []string
}

func (f *fakeUploader) Upload(ctx context.Context, file upload.File) (string, error) {
	if file.Name == f.failOn {
		return "", errors.New("host rejected " + file.Name)
	}
	return "https://img.example/" + file.Name, nil
}

func (f *fakeUploader) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

func files(names ...string) []upload.File {
	out := make([]upload.File, len(names))
	for i, n := range names {
		out[i] = upload.File{Name: n, ContentType: "image/png", Data: pngHeader}
	}
	return out
}

func TestUploadAll_PreservesOrder(t *testing.T) {
	u := &fakeUploader{}

	urls, err := upload.UploadAll(context.Background(), u, files("a.png", "b.png", "c.png", "d.png", "e.png"))

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://img.example/a.png",
		"https://img.example/b.png",
		"https://img.example/c.png",
		"https://img.example/d.png",
		"https://img.example/e.png",
	}, urls)
	assert.Empty(t, u.deleted)
}

func TestUploadAll_EmptyInput(t *testing.T) {
	urls, err := upload.UploadAll(context.Background(), &fakeUploader{}, nil)

	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestUploadAll_OneFailureFailsBatchAndCleansUp(t *testing.T) {
	u := &fakeUploader{failOn: "b.png"}

	urls, err := upload.UploadAll(context.Background(), u, files("a.png", "b.png", "c.png"))

	assert.Error(t, err)
	assert.Nil(t, urls)
	for _, d := range u.deleted {
		assert.NotEqual(t, "https://img.example/b.png", d, "failed upload has nothing to delete")
	}
}

type fakeS3 struct {
	put    []*s3.PutObjectInput
	delete []*s3.DeleteObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.put = append(f.put, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.delete = append(f.delete, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Uploader_UploadAndDelete(t *testing.T) {
	client := &fakeS3{}
	u := upload.NewS3UploaderWithClient(client, "bucket", "/complaints/", "https://cdn.example/")

	url, err := u.Upload(context.Background(), upload.File{Name: "x.PNG", ContentType: "image/png", Data: pngHeader})
	require.NoError(t, err)

	require.Len(t, client.put, 1)
	key := *client.put[0].Key
	assert.True(t, strings.HasPrefix(key, "complaints/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "image/png", *client.put[0].ContentType)
	assert.Equal(t, "https://cdn.example/"+key, url)

	require.NoError(t, u.Delete(context.Background(), url))
	require.Len(t, client.delete, 1)
	assert.Equal(t, key, *client.delete[0].Key)

	require.NoError(t, u.Delete(context.Background(), "https://elsewhere.example/a.png"))
	assert.Len(t, client.delete, 1, "foreign URLs are ignored")
}

func TestDiskUploader(t *testing.T) {
	dir := t.TempDir()
	d, err := upload.NewDiskUploader(dir, "/uploads/")
	require.NoError(t, err)

	url, err := d.Upload(context.Background(), upload.File{Name: "me.png", ContentType: "image/png", Data: pngHeader})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))

	name := strings.TrimPrefix(url, "/uploads/")
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	require.NoError(t, d.Delete(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, d.Delete(context.Background(), "/uploads/../etc/passwd"))
}

func multipartHeaders(t *testing.T, parts map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`"`)
		h.Set("Content-Type", "application/octet-stream")
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

func TestReadMultipart(t *testing.T) {
	got, err := upload.ReadMultipart(multipartHeaders(t, map[string][]byte{"p.png": pngHeader}))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "image/png", got[0].ContentType)

	_, err = upload.ReadMultipart(multipartHeaders(t, map[string][]byte{"notes.txt": []byte("hello world")}))
	assert.ErrorIs(t, err, upload.ErrUnsupportedType)
}
