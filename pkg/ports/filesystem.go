package ports

import "io"

// FileSystem abstracts file system operations.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating parent directories as needed.
	WriteFile(path string, data []byte) error

	// Create opens a file for streaming writes, truncating any existing file.
	Create(path string) (io.WriteCloser, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// ReadDir returns the names of the regular files in a directory, sorted.
	ReadDir(path string) ([]string, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory.
	Remove(path string) error
}
