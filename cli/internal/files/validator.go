package files

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

var ErrNoFiles = errors.New("no files specified")

// FileInfo describes one file queued for sending.
type FileInfo struct {
	Path string // absolute path
	Name string // base name announced to the receiver
	Size int64
	Type string // MIME type, application/octet-stream when unknown
}

// ValidateFiles checks every path and reports all failures together.
// Duplicate base names are rejected because the receiver requests files
// by name.
func ValidateFiles(paths []string) ([]FileInfo, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	var (
		infos []FileInfo
		errs  []error
		seen  = make(map[string]string, len(paths))
	)
	for _, path := range paths {
		info, err := validateFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := seen[info.Name]; dup {
			errs = append(errs, fmt.Errorf("%s: same name as %s", path, prev))
			continue
		}
		seen[info.Name] = path
		infos = append(infos, info)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("file validation failed: %w", errors.Join(errs...))
	}
	return infos, nil
}

func validateFile(path string) (FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: %w", path, err)
	}

	stat, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return FileInfo{}, fmt.Errorf("%s: file does not exist", path)
	case err != nil:
		return FileInfo{}, fmt.Errorf("%s: %w", path, err)
	case stat.IsDir():
		return FileInfo{}, fmt.Errorf("%s: is a directory", path)
	case stat.Size() == 0:
		return FileInfo{}, fmt.Errorf("%s: file is empty", path)
	}

	f, err := os.Open(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: cannot open file: %w", path, err)
	}
	f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(abs))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return FileInfo{
		Path: abs,
		Name: filepath.Base(abs),
		Size: stat.Size(),
		Type: mimeType,
	}, nil
}

func GetTotalSize(infos []FileInfo) int64 {
	var total int64
	for _, f := range infos {
		total += f.Size
	}
	return total
}
