// Package upload stores complaint photos and profile images on an image
// host and returns their public URLs.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"fixmycity/backend/internal/config"
	"fixmycity/backend/internal/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
)

// File is an in-memory attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader stores files and can remove them again by URL.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
	Delete(ctx context.Context, url string) error
}

// ReadMultipart buffers uploaded form files, sniffing the content type and
// enforcing the size limit.
func ReadMultipart(headers []*multipart.FileHeader) ([]File, error) {
	files := make([]File, 0, len(headers))
	for _, h := range headers {
		if h.Size > config.MaxImageBytes {
			return nil, fmt.Errorf("%w: %s", ErrTooLarge, h.Filename)
		}
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", h.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, config.MaxImageBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", h.Filename, err)
		}
		if len(data) > config.MaxImageBytes {
			return nil, fmt.Errorf("%w: %s", ErrTooLarge, h.Filename)
		}
		ct := http.DetectContentType(data)
		if _, ok := config.ImageContentTypes[ct]; !ok {
			declared := h.Header.Get("Content-Type")
			if _, ok := config.ImageContentTypes[declared]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, h.Filename)
			}
			ct = declared
		}
		files = append(files, File{Name: h.Filename, ContentType: ct, Data: data})
	}
	return files, nil
}

// objectKey returns folder/<uuid><ext>.
func objectKey(folder string, f File) string {
	ext := config.ImageContentTypes[f.ContentType]
	if ext == "" {
		ext = strings.ToLower(path.Ext(f.Name))
	}
	return path.Join(folder, uuid.NewString()+ext)
}

// UploadAll uploads files concurrently and returns their URLs in input
// order. The first failure cancels the rest; any objects already stored are
// then deleted best-effort and the error is returned.
func UploadAll(ctx context.Context, u Uploader, files []File) ([]string, error) {
	urls := make([]string, len(files))
	if len(files) == 0 {
		return urls, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			url, err := u.Upload(gctx, f)
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("file", f.Name).Msg("image upload failed")
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		DeleteAll(context.WithoutCancel(ctx), u, urls)
		return nil, err
	}
	return urls, nil
}

// DeleteAll removes every non-empty URL, logging failures.
func DeleteAll(ctx context.Context, u Uploader, urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := u.Delete(ctx, url); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("url", url).Msg("orphaned image not deleted")
		}
	}
}
