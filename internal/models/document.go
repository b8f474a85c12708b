// Package models defines the persisted document shape for tessera.
package models

import "time"

// Version is stamped into every saved document.
const Version = "2.31.0"

// SavedBlock is one block as produced by a document save.
type SavedBlock struct {
	ID         string         `json:"id"`
	Tool       string         `json:"type"`
	Data       map[string]any `json:"data"`
	Tunes      map[string]any `json:"tunes,omitempty"`
	ParentID   string         `json:"parent,omitempty"`
	ContentIDs []string       `json:"content,omitempty"`
}

// Output is the document-wide save result.
type Output struct {
	Time    int64        `json:"time"`
	Blocks  []SavedBlock `json:"blocks"`
	Version string       `json:"version"`
}

// Document is the on-disk representation of a stored document.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Output
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	ID        string    `json:"id"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
