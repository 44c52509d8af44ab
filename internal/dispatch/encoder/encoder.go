package encoder

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// RevisionCounting selects how the triggering write is accounted for
type RevisionCounting string

const (
	// RevisionCountingStored counts persisted revisions; the triggering write is already stored
	RevisionCountingStored RevisionCounting = "stored"
	// RevisionCountingPending adds the triggering write to the persisted count
	RevisionCountingPending RevisionCounting = "pending"
)

// Valid reports whether m is a known counting mode
func (m RevisionCounting) Valid() bool {
	return m == RevisionCountingStored || m == RevisionCountingPending
}

// RevisionCounter counts stored revisions of an entity
type RevisionCounter interface {
	CountRevisions(ctx context.Context, entityType domain.EntityType, entityID int64) (int, error)
}

// Linker builds the links placed in an event
type Linker interface {
	EntityURL(entityType domain.EntityType, entityID int64) string
	RestURL(entityType domain.EntityType, entityID int64, format string) string
	DownloadURL(f *domain.File) string
	Target() string
}

// Options configures an Encoder
type Options struct {
	RevisionCounting RevisionCounting
}

// Encoder builds NotificationEvents
type Encoder struct {
	links     Linker
	revisions RevisionCounter
	counting  RevisionCounting
}

// New creates an Encoder
func New(links Linker, revisions RevisionCounter, opts Options) *Encoder {
	if !opts.RevisionCounting.Valid() {
		opts.RevisionCounting = RevisionCountingStored
	}
	return &Encoder{
		links:     links,
		revisions: revisions,
		counting:  opts.RevisionCounting,
	}
}

// Encode builds the event describing req on subject, issued by issuer
func (e *Encoder) Encode(ctx context.Context, subject *domain.Entity, issuer *domain.Identity, req *domain.DerivativeJobRequest) (*domain.NotificationEvent, error) {
	if subject.Type == domain.EntityTypeFile && subject.File == nil {
		return nil, domain.NewConfigurationError("encode", fmt.Errorf("%w: file %d has no stored artifact",
			domain.ErrMissingArtifact, subject.ID))
	}

	event := &domain.NotificationEvent{
		Context: domain.ActivityStreamsContext,
		Actor: domain.Actor{
			Type: "Person",
			ID:   "urn:uuid:" + issuer.UUID.String(),
			URL: []domain.Link{
				canonical(e.links.EntityURL(domain.EntityTypeUser, issuer.ID), "text/html"),
			},
		},
		Object: domain.Object{
			ID:  "urn:uuid:" + subject.UUID.String(),
			URL: e.objectLinks(subject),
		},
		Target: e.links.Target(),
	}

	if req.Derivative || req.EventKind == domain.EventGenerateDerivative {
		event.Type = "Activity"
		event.Summary = string(req.EventKind)
	} else {
		event.Type = ucfirst(string(req.EventKind))
		event.Summary = fmt.Sprintf("%s a %s", event.Type, ucfirst(string(subject.Type)))

		isNew, err := e.isNewVersion(ctx, subject)
		if err != nil {
			return nil, err
		}
		event.Object.IsNewVersion = &isNew
	}

	if content := AttachmentContent(req); len(content) > 0 {
		event.Attachment = &domain.Attachment{
			Type:      "Object",
			Content:   content,
			MediaType: "application/json",
		}
	}

	return event, nil
}

func (e *Encoder) objectLinks(subject *domain.Entity) []domain.Link {
	if subject.Type == domain.EntityTypeFile {
		return []domain.Link{
			canonical(e.links.DownloadURL(subject.File), subject.File.MimeType),
		}
	}

	out := []domain.Link{
		canonical(e.links.EntityURL(subject.Type, subject.ID), "text/html"),
		{
			Name:      "JSON",
			Type:      "Link",
			Href:      e.links.RestURL(subject.Type, subject.ID, "json"),
			MediaType: "application/json",
			Rel:       "alternate",
		},
		{
			Name:      "JSONLD",
			Type:      "Link",
			Href:      e.links.RestURL(subject.Type, subject.ID, "jsonld"),
			MediaType: "application/ld+json",
			Rel:       "alternate",
		},
	}

	if subject.Type == domain.EntityTypeMedia && subject.File != nil {
		out = append(out, domain.Link{
			Name:      "Describes",
			Type:      "Link",
			Href:      e.links.DownloadURL(subject.File),
			MediaType: subject.File.MimeType,
			Rel:       "describes",
		})
	}

	return out
}

func (e *Encoder) isNewVersion(ctx context.Context, subject *domain.Entity) (bool, error) {
	if !subject.Type.Revisionable() {
		return false, nil
	}

	count, err := e.revisions.CountRevisions(ctx, subject.Type, subject.ID)
	if err != nil {
		return false, fmt.Errorf("failed to count revisions: %w", err)
	}
	if e.counting == RevisionCountingPending {
		count++
	}
	return count > 1, nil
}

// AttachmentContent returns the whitelisted job parameters of req.
// Derivative requests always carry args and mimetype; other keys only when set.
func AttachmentContent(req *domain.DerivativeJobRequest) map[string]string {
	values := map[string]string{
		domain.AttachmentFileUploadURI:  req.FileUploadURI,
		domain.AttachmentFedoraURI:      req.FedoraURI,
		domain.AttachmentSourceURI:      req.SourceArtifactURI,
		domain.AttachmentDestinationURI: req.DestinationURI,
		domain.AttachmentArgs:           req.ExtraArgs,
		domain.AttachmentMimetype:       req.Mimetype,
		domain.AttachmentSourceField:    req.SourceFieldName,
	}

	content := make(map[string]string)
	for _, key := range domain.AttachmentKeys {
		value := values[key]
		if value != "" || (req.Derivative && alwaysSent(key)) {
			content[key] = value
		}
	}
	return content
}

func alwaysSent(key string) bool {
	return key == domain.AttachmentArgs || key == domain.AttachmentMimetype
}

func canonical(href, mediaType string) domain.Link {
	return domain.Link{
		Name:      "Canonical",
		Type:      "Link",
		Href:      href,
		MediaType: mediaType,
		Rel:       "canonical",
	}
}

func ucfirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
