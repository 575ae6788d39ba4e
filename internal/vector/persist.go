package vector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/vexus/internal/errs"
)

// tempInfix separates an index path from the unique suffix of its
// in-progress save.
const tempInfix = ".tmp-"

// writeAtomic calls write with a unique sibling path and renames the result
// over path. The previous file at path is untouched unless the rename succeeds.
func writeAtomic(path string, write func(tmp string) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.Storage("create index dir", dir, err)
		}
	}
	tmp := path + tempInfix + uuid.NewString()
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return errs.Engine("save", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errs.Storage("rename", path, err)
	}
	return nil
}

// tempFiles lists leftovers of interrupted saves of path.
func tempFiles(path string) ([]string, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), base+tempInfix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// RemoveStaleTempFiles deletes leftovers of interrupted saves of path and
// returns how many were removed.
func RemoveStaleTempFiles(path string) (int, error) {
	files, err := tempFiles(path)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// DiskUsageBytes returns the size of the index file at path plus any
// in-progress or stale temporary saves. A missing index counts as 0.
func DiskUsageBytes(path string) (int64, error) {
	if path == "" {
		return 0, nil
	}
	files, err := tempFiles(path)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range append([]string{path}, files...) {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
