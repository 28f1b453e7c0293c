package store

import (
	"serverlist/pkg/models"
)

// DataFileName is the server list file kept in each game directory.
const DataFileName = "servers.dat"

// Store defines how the server collection is persisted.
type Store interface {
	// Load reads the collection at path. A missing file yields an empty
	// collection; a file that exists but cannot be decoded yields a ParseError.
	Load(path string) (*models.Collection, error)

	// Save replaces the file at path with the collection. Readers never
	// observe a partially written file. The store keeps no reference to the
	// collection once Save returns.
	Save(path string, collection *models.Collection) error
}

// ParseError is returned when the data file exists but is malformed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "malformed server list " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError is returned when the data file cannot be read or written.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " server list " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}
