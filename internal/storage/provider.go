// Package storage defines the vault file-system abstraction.
package storage

import "time"

// Ext is the extension of thought documents in the vault.
const Ext = ".yaml"

// DocumentMetadata describes one thought document on disk.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every thought document under dir (relative to vault root).
	List(dir string) ([]DocumentMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root).
	Move(oldPath, newPath string) error
}
