package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage is the on-disk footprint of the catalog database and the full-text index.
type DiskUsage struct {
	DatabaseBytes      int64 `json:"database_bytes"`
	FullTextIndexBytes int64 `json:"full_text_index_bytes"`
	TotalBytes         int64 `json:"total_bytes"`
}

// MeasureDiskUsage sizes the database (including its WAL and shared-memory
// sidecar files) and the full-text index directory. Missing paths count as 0.
func MeasureDiskUsage(dbPath, indexPath string) (*DiskUsage, error) {
	dbBytes, err := DiskUsageBytes(dbPath, dbPath+"-wal", dbPath+"-shm")
	if err != nil {
		return nil, err
	}
	idxBytes, err := DiskUsageBytes(indexPath)
	if err != nil {
		return nil, err
	}
	return &DiskUsage{
		DatabaseBytes:      dbBytes,
		FullTextIndexBytes: idxBytes,
		TotalBytes:         dbBytes + idxBytes,
	}, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed). Empty and
// missing paths contribute 0.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		n, err := dirSize(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
