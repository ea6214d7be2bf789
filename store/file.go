package store

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// File is a Store backed by an operating system file. Mappings use mmap where
// the platform supports it.
type File struct {
	file   *os.File
	remove bool // temporary file, removed on Close

	mu       sync.Mutex
	size     int64            // known file size, grown by WriteAt
	mappings map[*byte][]byte // returned slice -> region mapped by the platform
}

// CreateTemp creates a new temporary file store in dir (os.TempDir if empty).
// The file is removed on Close.
func CreateTemp(dir string) (*File, error) {
	file, err := os.CreateTemp(dir, "pyramid-*.cache")
	if err != nil {
		return nil, err
	}
	return &File{file: file, remove: true, mappings: make(map[*byte][]byte)}, nil
}

// Create creates (or truncates) a named file store that is kept on Close.
func Create(filePath string) (*File, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &File{file: file, mappings: make(map[*byte][]byte)}, nil
}

// Open opens an existing file store read-only.
func Open(filePath string) (*File, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	return &File{file: file, size: info.Size(), mappings: make(map[*byte][]byte)}, nil
}

// Name returns the file path.
func (f *File) Name() string {
	return f.file.Name()
}

// Size returns the current file size.
func (f *File) Size() (int64, error) {
	info, err := f.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.file.WriteAt(p, off)
	f.mu.Lock()
	f.size = max(f.size, off+int64(n))
	f.mu.Unlock()
	return n, err
}

func (f *File) Alignment() int64 {
	return int64(os.Getpagesize())
}

func (f *File) Map(offset int64, length int) ([]byte, error) {
	if offset < 0 || length <= 0 {
		return nil, fmt.Errorf("store: invalid mapping (%d, %d)", offset, length)
	}
	// pages past the end of the file fault on access instead of failing here
	if err := f.checkRange(offset, length); err != nil {
		return nil, err
	}
	pageOffset := offset &^ (f.Alignment() - 1)
	delta := int(offset - pageOffset)

	region, err := mapRegion(f.file, pageOffset, delta+length)
	if err != nil {
		return nil, fmt.Errorf("store: map %s [%d, %d): %w", f.file.Name(), offset, offset+int64(length), err)
	}
	data := region[delta : delta+length : delta+length]

	f.mu.Lock()
	f.mappings[&data[0]] = region
	f.mu.Unlock()
	return data, nil
}

func (f *File) checkRange(offset int64, length int) error {
	end := offset + int64(length)
	f.mu.Lock()
	size := f.size
	f.mu.Unlock()
	if end <= size {
		return nil
	}
	// the file may have been extended by someone else
	size, err := f.Size()
	if err != nil {
		return fmt.Errorf("store: stat %s: %w", f.file.Name(), err)
	}
	f.mu.Lock()
	f.size = max(f.size, size)
	f.mu.Unlock()
	if end > size {
		return fmt.Errorf("store: mapping [%d, %d) past the end of %s (%d bytes)", offset, end, f.file.Name(), size)
	}
	return nil
}

func (f *File) Unmap(data []byte) error {
	if len(data) == 0 {
		return ErrNotMapped
	}
	f.mu.Lock()
	region, ok := f.mappings[&data[0]]
	delete(f.mappings, &data[0])
	f.mu.Unlock()
	if !ok {
		return ErrNotMapped
	}
	return unmapRegion(region)
}

// Mapped returns the number of outstanding mappings.
func (f *File) Mapped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mappings)
}

// Close releases leftover mappings and closes the file.
func (f *File) Close() error {
	f.mu.Lock()
	var errs []error
	for key, region := range f.mappings {
		errs = append(errs, unmapRegion(region))
		delete(f.mappings, key)
	}
	f.mu.Unlock()

	errs = append(errs, f.file.Close())
	if f.remove {
		errs = append(errs, os.Remove(f.file.Name()))
	}
	return errors.Join(errs...)
}
