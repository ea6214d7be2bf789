//go:build unix

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapRegion(file *os.File, offset int64, length int) ([]byte, error) {
	return unix.Mmap(int(file.Fd()), offset, length, unix.PROT_READ, unix.MAP_SHARED)
}

func unmapRegion(region []byte) error {
	return unix.Munmap(region)
}
