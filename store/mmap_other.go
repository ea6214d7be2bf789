//go:build !unix

package store

import "os"

// Without mmap the region is copied. Records are immutable once written.
func mapRegion(file *os.File, offset int64, length int) ([]byte, error) {
	region := make([]byte, length)
	if _, err := file.ReadAt(region, offset); err != nil {
		return nil, err
	}
	return region, nil
}

func unmapRegion(region []byte) error {
	return nil
}
