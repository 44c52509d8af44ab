package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// ContentStore is the subset of the content store the resolver reads.
// Lookups that find nothing return domain.ErrEntityNotFound.
type ContentStore interface {
	TermByURI(ctx context.Context, uri string) (*domain.Term, error)
	MediaWithTerm(ctx context.Context, nodeID, termID int64) (*domain.Media, error)
	MediaByID(ctx context.Context, mediaID int64) (*domain.Media, error)
	FileByID(ctx context.Context, fileID int64) (*domain.File, error)
	MediaSourceField(ctx context.Context, bundle string) (string, error)
	FieldURIScheme(ctx context.Context, entityType domain.EntityType, fieldName string) (string, error)
}

// Linker builds the absolute URLs placed in a request
type Linker interface {
	DownloadURL(f *domain.File) string
	MediaSourcePutToNode(nodeID int64, mediaType string, termID int64) string
	AttachFileToMedia(mediaID int64, destinationField string) string
	FedoraURI(fileURI string) (string, bool)
}

// Resolver turns a job configuration and a subject into a DerivativeJobRequest
type Resolver struct {
	store  ContentStore
	links  Linker
	tokens *TokenReplacer
	logger *slog.Logger
}

// New creates a Resolver
func New(store ContentStore, links Linker, tokens *TokenReplacer, logger *slog.Logger) *Resolver {
	if tokens == nil {
		tokens = NewTokenReplacer(nil)
	}
	return &Resolver{
		store:  store,
		links:  links,
		tokens: tokens,
		logger: logger,
	}
}

// Resolve builds the request for job on subject. Failures are returned before any
// broker interaction: configuration problems as *domain.ConfigurationError and
// the loop short-circuit as domain.ErrLoopDetected.
func (r *Resolver) Resolve(ctx context.Context, subject *domain.Entity, job *domain.JobConfiguration) (*domain.DerivativeJobRequest, error) {
	req := &domain.DerivativeJobRequest{
		SubjectEntityID: subject.ID,
		SubjectType:     subject.Type,
		QueueName:       job.QueueName,
		EventKind:       job.EventKind,
		Derivative:      job.IsDerivative(),
	}

	var err error
	switch job.Kind {
	case domain.JobKindEmit:
		err = r.resolveEmit(ctx, subject, req)
	case domain.JobKindGenerateDerivative:
		err = r.resolveNodeDerivative(ctx, subject, job, req)
	case domain.JobKindGenerateDerivativeFile:
		err = r.resolveMediaFileDerivative(ctx, subject, job, req)
	default:
		err = domain.NewConfigurationError("resolve", fmt.Errorf("%w: unknown job kind %q", domain.ErrInvalidConfiguration, job.Kind))
	}
	if err != nil {
		return nil, err
	}

	if req.Derivative {
		req.ExtraArgs = job.ExtraArgs
		req.Mimetype = job.Mimetype
	}

	return req, nil
}

func (r *Resolver) resolveEmit(ctx context.Context, subject *domain.Entity, req *domain.DerivativeJobRequest) error {
	switch subject.Type {
	case domain.EntityTypeMedia:
		field, err := r.store.MediaSourceField(ctx, subject.Bundle)
		if err != nil {
			return r.lookupError("resolve source field", err)
		}
		req.SourceFieldName = field

	case domain.EntityTypeFile:
		if subject.File == nil {
			return nil
		}
		if uri, ok := r.links.FedoraURI(subject.File.URI); ok {
			req.FedoraURI = uri
		}
	}

	return nil
}

func (r *Resolver) resolveNodeDerivative(ctx context.Context, subject *domain.Entity, job *domain.JobConfiguration, req *domain.DerivativeJobRequest) error {
	if subject.Type != domain.EntityTypeNode {
		return domain.NewConfigurationError("resolve", fmt.Errorf("%w: %s %d is not a node",
			domain.ErrUnsupportedSubject, subject.Type, subject.ID))
	}

	sourceTerm, err := r.term(ctx, job.SourceRoleURI, "source")
	if err != nil {
		return err
	}

	sourceMedia, err := r.store.MediaWithTerm(ctx, subject.ID, sourceTerm.ID)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return domain.NewConfigurationError("resolve source media", fmt.Errorf("%w: no media on node %d tagged %s",
				domain.ErrMissingArtifact, subject.ID, job.SourceRoleURI))
		}
		return r.lookupError("resolve source media", err)
	}

	sourceFile, err := r.sourceFile(ctx, sourceMedia)
	if err != nil {
		return err
	}
	req.SourceArtifactURI = r.links.DownloadURL(sourceFile)

	derivativeTerm, err := r.term(ctx, job.DerivativeRoleURI, "derivative")
	if err != nil {
		return err
	}

	derivativeMedia, err := r.store.MediaWithTerm(ctx, subject.ID, derivativeTerm.ID)
	switch {
	case err == nil:
		if derivativeMedia.ID == sourceMedia.ID {
			r.logger.DebugContext(ctx, "Source and derivative media are the same",
				slog.Int64("node_id", subject.ID),
				slog.Int64("media_id", sourceMedia.ID),
			)
			return fmt.Errorf("%w: media %d on node %d", domain.ErrLoopDetected, sourceMedia.ID, subject.ID)
		}
	case !errors.Is(err, domain.ErrEntityNotFound):
		return r.lookupError("resolve derivative media", err)
	}

	req.DestinationURI = r.links.MediaSourcePutToNode(subject.ID, job.DestinationMediaType, derivativeTerm.ID)

	path := r.tokens.Replace(job.PathTemplate, TokenData{
		Node:  subject,
		Media: sourceMedia,
		Term:  derivativeTerm,
	})
	req.ResolvedStoragePath = path
	req.FileUploadURI = job.StorageScheme + "://" + path

	return nil
}

func (r *Resolver) resolveMediaFileDerivative(ctx context.Context, subject *domain.Entity, job *domain.JobConfiguration, req *domain.DerivativeJobRequest) error {
	if subject.Type != domain.EntityTypeMedia {
		return domain.NewConfigurationError("resolve", fmt.Errorf("%w: %s %d is not a media",
			domain.ErrUnsupportedSubject, subject.Type, subject.ID))
	}

	media, err := r.store.MediaByID(ctx, subject.ID)
	if err != nil {
		return r.lookupError("load media", err)
	}

	sourceFile, err := r.sourceFile(ctx, media)
	if err != nil {
		return err
	}
	req.SourceArtifactURI = r.links.DownloadURL(sourceFile)
	req.DestinationURI = r.links.AttachFileToMedia(media.ID, job.DestinationFieldName)

	scheme := job.StorageScheme
	if scheme == "" {
		scheme, err = r.store.FieldURIScheme(ctx, domain.EntityTypeMedia, job.DestinationFieldName)
		if err != nil {
			return r.lookupError("resolve destination field scheme", err)
		}
	}
	if scheme == "" {
		return domain.NewConfigurationError("resolve", fmt.Errorf("%w: no storage scheme for field %s",
			domain.ErrInvalidConfiguration, job.DestinationFieldName))
	}

	path := r.tokens.Replace(job.PathTemplate, TokenData{Media: media})
	req.ResolvedStoragePath = path
	req.FileUploadURI = scheme + "://" + path

	return nil
}

func (r *Resolver) term(ctx context.Context, uri, role string) (*domain.Term, error) {
	term, err := r.store.TermByURI(ctx, uri)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return nil, domain.NewConfigurationError("resolve "+role+" term",
				fmt.Errorf("%w: %s", domain.ErrUnresolvedRole, uri))
		}
		return nil, r.lookupError("resolve "+role+" term", err)
	}
	return term, nil
}

func (r *Resolver) sourceFile(ctx context.Context, media *domain.Media) (*domain.File, error) {
	missing := domain.NewConfigurationError("resolve source file",
		fmt.Errorf("%w: no source file for media %d", domain.ErrMissingArtifact, media.ID))

	if media.SourceFileID == 0 {
		return nil, missing
	}

	file, err := r.store.FileByID(ctx, media.SourceFileID)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return nil, missing
		}
		return nil, r.lookupError("resolve source file", err)
	}
	if file.URI == "" {
		return nil, missing
	}
	return file, nil
}

// lookupError wraps store failures. Not-found results are operator-fixable;
// anything else is passed through wrapped.
func (r *Resolver) lookupError(op string, err error) error {
	if errors.Is(err, domain.ErrEntityNotFound) {
		return domain.NewConfigurationError(op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
