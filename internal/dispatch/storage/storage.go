package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/jmoiron/sqlx"
)

// Store reads content entities, role terms and revision counts from PostgreSQL
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// get runs a single-row query and maps sql.ErrNoRows to domain.ErrEntityNotFound
func (s *Store) get(ctx context.Context, dest interface{}, what string, query string, args ...interface{}) error {
	err := s.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrEntityNotFound, what)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", what, err)
	}
	return nil
}

func (s *Store) TermByURI(ctx context.Context, uri string) (*domain.Term, error) {
	var row termRow
	query := `
		SELECT id, uuid, name, external_uri
		FROM taxonomy_terms
		WHERE external_uri = $1
		ORDER BY id
		LIMIT 1
	`

	if err := s.get(ctx, &row, "term "+uri, query, uri); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// MediaWithTerm returns the first media of the node tagged with the term
func (s *Store) MediaWithTerm(ctx context.Context, nodeID, termID int64) (*domain.Media, error) {
	var row mediaRow
	query := `
		SELECT m.id, m.uuid, m.bundle, m.name, m.source_fid
		FROM media m
		JOIN media_terms mt ON mt.media_id = m.id
		WHERE m.node_id = $1 AND mt.term_id = $2
		ORDER BY m.id
		LIMIT 1
	`

	what := fmt.Sprintf("media on node %d with term %d", nodeID, termID)
	if err := s.get(ctx, &row, what, query, nodeID, termID); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) MediaByID(ctx context.Context, mediaID int64) (*domain.Media, error) {
	var row mediaRow
	query := `
		SELECT id, uuid, bundle, name, source_fid
		FROM media
		WHERE id = $1
	`

	if err := s.get(ctx, &row, fmt.Sprintf("media %d", mediaID), query, mediaID); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) FileByID(ctx context.Context, fileID int64) (*domain.File, error) {
	var row fileRow
	query := `
		SELECT id, uuid, uri, filename, mimetype
		FROM files
		WHERE id = $1
	`

	if err := s.get(ctx, &row, fmt.Sprintf("file %d", fileID), query, fileID); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// MediaSourceField returns the name of the field holding a media type's source file
func (s *Store) MediaSourceField(ctx context.Context, bundle string) (string, error) {
	var field string
	query := `
		SELECT source_field
		FROM media_types
		WHERE id = $1
	`

	if err := s.get(ctx, &field, "media type "+bundle, query, bundle); err != nil {
		return "", err
	}
	return field, nil
}

// FieldURIScheme returns the storage scheme configured for a file field
func (s *Store) FieldURIScheme(ctx context.Context, entityType domain.EntityType, fieldName string) (string, error) {
	var scheme string
	query := `
		SELECT uri_scheme
		FROM field_storage
		WHERE entity_type = $1 AND field_name = $2
	`

	what := fmt.Sprintf("field storage %s.%s", entityType, fieldName)
	if err := s.get(ctx, &scheme, what, query, string(entityType), fieldName); err != nil {
		return "", err
	}
	return scheme, nil
}

var revisionTables = map[domain.EntityType]struct{ table, column string }{
	domain.EntityTypeNode:         {"node_revisions", "node_id"},
	domain.EntityTypeMedia:        {"media_revisions", "media_id"},
	domain.EntityTypeTaxonomyTerm: {"taxonomy_term_revisions", "term_id"},
}

// CountRevisions returns the number of stored revisions of an entity
func (s *Store) CountRevisions(ctx context.Context, entityType domain.EntityType, entityID int64) (int, error) {
	t, ok := revisionTables[entityType]
	if !ok {
		return 0, nil
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", t.table, t.column)
	if err := s.db.GetContext(ctx, &count, query, entityID); err != nil {
		return 0, fmt.Errorf("failed to count revisions: %w", err)
	}
	return count, nil
}

// Entity loads a dispatch subject. Media subjects carry their source file and
// file subjects carry themselves as File.
func (s *Store) Entity(ctx context.Context, entityType domain.EntityType, entityID int64) (*domain.Entity, error) {
	switch entityType {
	case domain.EntityTypeNode:
		var row nodeRow
		query := `
			SELECT id, uuid, bundle, title
			FROM nodes
			WHERE id = $1
		`
		if err := s.get(ctx, &row, fmt.Sprintf("node %d", entityID), query, entityID); err != nil {
			return nil, err
		}
		return &domain.Entity{Type: entityType, ID: row.ID, UUID: row.UUID, Bundle: row.Bundle, Label: row.Title}, nil

	case domain.EntityTypeMedia:
		media, err := s.MediaByID(ctx, entityID)
		if err != nil {
			return nil, err
		}

		entity := &domain.Entity{Type: entityType, ID: media.ID, UUID: media.UUID, Bundle: media.Bundle, Label: media.Name}
		if media.SourceFileID != 0 {
			file, err := s.FileByID(ctx, media.SourceFileID)
			if err != nil && !errors.Is(err, domain.ErrEntityNotFound) {
				return nil, err
			}
			entity.File = file
		}
		return entity, nil

	case domain.EntityTypeFile:
		file, err := s.FileByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return &domain.Entity{Type: entityType, ID: file.ID, UUID: file.UUID, Label: file.Filename, File: file}, nil

	case domain.EntityTypeTaxonomyTerm:
		var row termRow
		query := `
			SELECT id, uuid, name, external_uri
			FROM taxonomy_terms
			WHERE id = $1
		`
		if err := s.get(ctx, &row, fmt.Sprintf("term %d", entityID), query, entityID); err != nil {
			return nil, err
		}
		return &domain.Entity{Type: entityType, ID: row.ID, UUID: row.UUID, Label: row.Name}, nil

	case domain.EntityTypeUser:
		identity, err := s.Identity(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return &domain.Entity{Type: entityType, ID: identity.ID, UUID: identity.UUID, Label: identity.Name}, nil

	default:
		return nil, fmt.Errorf("%w: unknown entity type %q", domain.ErrEntityNotFound, entityType)
	}
}

// Identity loads the user an event is issued on behalf of
func (s *Store) Identity(ctx context.Context, userID int64) (*domain.Identity, error) {
	var row userRow
	query := `
		SELECT id, uuid, name, roles
		FROM users
		WHERE id = $1
	`

	if err := s.get(ctx, &row, fmt.Sprintf("user %d", userID), query, userID); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}
