package storage

import (
	"database/sql"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type nodeRow struct {
	ID     int64     `db:"id"`
	UUID   uuid.UUID `db:"uuid"`
	Bundle string    `db:"bundle"`
	Title  string    `db:"title"`
}

type mediaRow struct {
	ID        int64         `db:"id"`
	UUID      uuid.UUID     `db:"uuid"`
	Bundle    string        `db:"bundle"`
	Name      string        `db:"name"`
	SourceFID sql.NullInt64 `db:"source_fid"`
}

func (r mediaRow) toDomain() *domain.Media {
	return &domain.Media{
		ID:           r.ID,
		UUID:         r.UUID,
		Bundle:       r.Bundle,
		Name:         r.Name,
		SourceFileID: r.SourceFID.Int64,
	}
}

type fileRow struct {
	ID       int64     `db:"id"`
	UUID     uuid.UUID `db:"uuid"`
	URI      string    `db:"uri"`
	Filename string    `db:"filename"`
	MimeType string    `db:"mimetype"`
}

func (r fileRow) toDomain() *domain.File {
	return &domain.File{
		ID:       r.ID,
		UUID:     r.UUID,
		URI:      r.URI,
		Filename: r.Filename,
		MimeType: r.MimeType,
	}
}

type termRow struct {
	ID          int64     `db:"id"`
	UUID        uuid.UUID `db:"uuid"`
	Name        string    `db:"name"`
	ExternalURI string    `db:"external_uri"`
}

func (r termRow) toDomain() *domain.Term {
	return &domain.Term{
		ID:   r.ID,
		UUID: r.UUID,
		Name: r.Name,
		URI:  r.ExternalURI,
	}
}

type userRow struct {
	ID    int64          `db:"id"`
	UUID  uuid.UUID      `db:"uuid"`
	Name  string         `db:"name"`
	Roles pq.StringArray `db:"roles"`
}

func (r userRow) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:    r.ID,
		UUID:  r.UUID,
		Name:  r.Name,
		Roles: []string(r.Roles),
	}
}
