package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskUploader keeps admin profile images on local disk, served under
// URLPrefix by the router.
type DiskUploader struct {
	Dir       string
	URLPrefix string
}

func NewDiskUploader(dir, urlPrefix string) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskUploader{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (d *DiskUploader) Upload(_ context.Context, f File) (string, error) {
	name := filepath.Base(objectKey("", f))
	if err := os.WriteFile(filepath.Join(d.Dir, name), f.Data, 0o644); err != nil {
		return "", err
	}
	return d.URLPrefix + "/" + name, nil
}

func (d *DiskUploader) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, d.URLPrefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	err := os.Remove(filepath.Join(d.Dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
