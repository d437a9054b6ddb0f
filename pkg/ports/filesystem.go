package ports

// FileSystem abstracts the file operations of the export tooling. The
// native library reads RAW files and writes PPM/TIFF output itself; this
// port covers everything written from Go.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating parent directories.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory.
	Remove(path string) error
}
