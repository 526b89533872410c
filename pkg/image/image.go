package image

import (
	"os"
	"path"
	"strings"

	"github.com/diskfs/go-diskfs/backend/file"
	"github.com/diskfs/go-diskfs/filesystem/iso9660"
	"github.com/pkg/errors"
)

const sectorSize = 2048

// Verify checks that ISO image contains all the files.
func Verify(imagePath string, files ...string) error {
	info, err := os.Stat(imagePath)
	if err != nil {
		return errors.WithStack(err)
	}

	b, err := file.OpenFromPath(imagePath, true)
	if err != nil {
		return errors.WithStack(err)
	}
	defer b.Close()

	fs, err := iso9660.Read(b, info.Size(), 0, sectorSize)
	if err != nil {
		return errors.Wrapf(err, "reading image %q failed", imagePath)
	}

	for _, f := range files {
		if err := lookup(fs, f); err != nil {
			return errors.Wrapf(err, "verifying image %q failed", imagePath)
		}
	}
	return nil
}

// lookup walks the directory tree matching names the way ISO9660 readers do,
// so plain, Joliet and Rock Ridge entries are all found.
func lookup(fs *iso9660.FileSystem, filePath string) error {
	parts := strings.Split(strings.Trim(path.Clean("/"+filePath), "/"), "/")
	dir := "/"
loop:
	for i, part := range parts {
		entries, err := fs.ReadDir(dir)
		if err != nil {
			return errors.WithStack(err)
		}
		for _, e := range entries {
			if !sameName(e.Name(), part) {
				continue
			}
			if i < len(parts)-1 && !e.IsDir() {
				continue
			}
			dir = path.Join(dir, e.Name())
			continue loop
		}
		return errors.Errorf("file %q does not exist", filePath)
	}
	return nil
}

func sameName(entry, name string) bool {
	if i := strings.IndexByte(entry, ';'); i >= 0 {
		entry = entry[:i]
	}
	return strings.EqualFold(strings.TrimSuffix(entry, "."), name)
}
