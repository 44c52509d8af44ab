package domain

import "github.com/google/uuid"

// EntityType identifies the kind of content a subject is
type EntityType string

// Entity type constants
const (
	EntityTypeNode         EntityType = "node"
	EntityTypeMedia        EntityType = "media"
	EntityTypeFile         EntityType = "file"
	EntityTypeTaxonomyTerm EntityType = "taxonomy_term"
	EntityTypeUser         EntityType = "user"
)

// Revisionable reports whether stored revisions are tracked for this type
func (t EntityType) Revisionable() bool {
	switch t {
	case EntityTypeNode, EntityTypeMedia, EntityTypeTaxonomyTerm:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeNode, EntityTypeMedia, EntityTypeFile, EntityTypeTaxonomyTerm, EntityTypeUser:
		return true
	default:
		return false
	}
}

// Entity is the subject of a dispatch: the content item a lifecycle event fired for.
// File is the entity itself for file subjects and the source file for media subjects.
type Entity struct {
	Type   EntityType
	ID     int64
	UUID   uuid.UUID
	Bundle string
	Label  string
	File   *File
}

// Media is a media item attached to a node
type Media struct {
	ID           int64
	UUID         uuid.UUID
	Bundle       string
	Name         string
	SourceFileID int64
}

// File is a stored binary artifact
type File struct {
	ID       int64
	UUID     uuid.UUID
	URI      string
	Filename string
	MimeType string
}

// Term is a vocabulary entry used as a role tag
type Term struct {
	ID   int64
	UUID uuid.UUID
	Name string
	URI  string
}

// Identity is the user an event is issued on behalf of
type Identity struct {
	ID    int64
	UUID  uuid.UUID
	Name  string
	Roles []string
}
