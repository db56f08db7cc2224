package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/case-framework/recruitment-backend/pkg/recruitment/types"
	"github.com/google/uuid"
)

const URL_PREFIX = "/uploads"

var ErrInvalidFilename = errors.New("invalid filename")

// DiskStore keeps uploaded files below root, one folder per owner kind (uploads/<entityType>s/).
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("filestore path not set")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, err
	}
	return &DiskStore{root: root}, nil
}

type StoredFile struct {
	Filename   string
	StorageURL string
	Size       int64
}

// Save writes r to a new file with a random name and the given extension.
func (s *DiskStore) Save(owner types.EntityRef, ext string, r io.Reader) (StoredFile, error) {
	dir := filepath.Join(s.root, owner.Type.Folder())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return StoredFile{}, err
	}

	filename := uuid.NewString() + ext
	target := filepath.Join(dir, filename)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return StoredFile{}, err
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
		return StoredFile{}, fmt.Errorf("writing %s: %w", filename, err)
	}

	return StoredFile{
		Filename:   filename,
		StorageURL: path.Join(URL_PREFIX, owner.Type.Folder(), filename),
		Size:       size,
	}, nil
}

func (s *DiskStore) SaveUpload(owner types.EntityRef, ext string, fileHeader *multipart.FileHeader) (StoredFile, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return StoredFile{}, err
	}
	defer src.Close()
	return s.Save(owner, ext, src)
}

// Path returns the location on disk of a stored file. Names that would leave the owner folder are rejected.
func (s *DiskStore) Path(owner types.EntityRef, filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ErrInvalidFilename
	}
	return filepath.Join(s.root, owner.Type.Folder(), filename), nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *DiskStore) Remove(owner types.EntityRef, filename string) error {
	p, err := s.Path(owner, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
