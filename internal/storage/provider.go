// Package storage keeps saved documents as JSON files in one directory.
package storage

import "github.com/starford/tessera/internal/models"

// Ext is the file extension of stored documents.
const Ext = ".json"

// Provider is the interface for document file operations. Documents are
// addressed by id; the file name is the id plus Ext.
type Provider interface {
	// List returns metadata for every stored document.
	List() ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document.
	Read(id string) ([]byte, error)
	// Write atomically replaces the document with content.
	Write(id string, content []byte) error
	// Delete removes the document.
	Delete(id string) error
}
