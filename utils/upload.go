package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"workhub-manager/server/logging"

	"golang.org/x/exp/rand"
)

const (
	StorageDisk   = "disk"
	StorageMemory = "memory"

	// AssetsField is the multipart field holding task attachments.
	AssetsField = "assets"
	// PublicPrefix is where disk uploads are served from.
	PublicPrefix = "/uploads/"

	// MaxAssetFiles caps the files accepted in one request.
	MaxAssetFiles = 10

	maxFormMemory = 32 << 20
	// formOverhead covers text fields and multipart framing.
	formOverhead = 1 << 20
)

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrTooManyFiles = errors.New("too many files")
	ErrBodyTooLarge = errors.New("request body too large")
)

// Uploader stores multipart task assets either on disk or by filename only.
type Uploader struct {
	Storage  string
	Dir      string
	MaxBytes int64
}

func NewUploader(storage, dir string, maxBytes int64) (*Uploader, error) {
	if storage == StorageDisk {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
		}
	}
	return &Uploader{Storage: storage, Dir: dir, MaxBytes: maxBytes}, nil
}

// IsMultipart reports whether r carries a multipart form body.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// BodyLimit is the largest multipart body ParseForm reads.
func (u *Uploader) BodyLimit() int64 {
	return u.MaxBytes*MaxAssetFiles + formOverhead
}

// ParseForm bounds the body to BodyLimit before parsing so oversized requests
// are cut off while streaming.
func (u *Uploader) ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, u.BodyLimit())
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, u.BodyLimit())
		}
		return err
	}
	if n := len(r.MultipartForm.File[AssetsField]); n > MaxAssetFiles {
		return fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyFiles, n, MaxAssetFiles)
	}
	return nil
}

// SaveAssets stores every file in the assets field of a parsed multipart form
// and returns the recorded asset references in order.
func (u *Uploader) SaveAssets(form *multipart.Form) ([]string, error) {
	if form == nil {
		return nil, nil
	}
	files := form.File[AssetsField]

	for _, fh := range files {
		if fh.Size > u.MaxBytes {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, fh.Filename, u.MaxBytes)
		}
	}

	assets := make([]string, 0, len(files))
	for _, fh := range files {
		name := cleanName(fh.Filename)
		if u.Storage != StorageDisk {
			assets = append(assets, name)
			continue
		}

		stored := fmt.Sprintf("%d-%06d-%s", time.Now().UnixMilli(), rand.Intn(1000000), name)
		if err := u.write(fh, stored); err != nil {
			u.Remove(append(assets, path.Join(PublicPrefix, stored)))
			return nil, err
		}
		logging.Logger.Infof("Event ID: ASSET_STORED, Description: Stored upload %s", stored)
		assets = append(assets, path.Join(PublicPrefix, stored))
	}
	return assets, nil
}

func (u *Uploader) write(fh *multipart.FileHeader, stored string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(u.Dir, stored))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", stored, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, u.MaxBytes+1)); err != nil {
		return fmt.Errorf("failed to write %s: %w", stored, err)
	}
	return nil
}

// Remove deletes stored disk assets. It is used to discard uploads of a
// request that failed after they were written.
func (u *Uploader) Remove(assets []string) {
	if u.Storage != StorageDisk {
		return
	}
	for _, asset := range assets {
		if !strings.HasPrefix(asset, PublicPrefix) {
			continue
		}
		stored := filepath.Join(u.Dir, path.Base(asset))
		if err := os.Remove(stored); err != nil && !os.IsNotExist(err) {
			logging.Logger.Warnf("Event ID: ASSET_REMOVE_FAILED, Description: Failed to remove %s: %v", stored, err)
			continue
		}
		logging.Logger.Infof("Event ID: ASSET_REMOVED, Description: Removed upload %s", stored)
	}
}

// cleanName strips any directory part a client put in the filename.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}
