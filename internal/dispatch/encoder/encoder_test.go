package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/links"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRevisions struct {
	mock.Mock
}

func (m *mockRevisions) CountRevisions(ctx context.Context, entityType domain.EntityType, entityID int64) (int, error) {
	args := m.Called(ctx, entityType, entityID)
	return args.Int(0), args.Error(1)
}

var (
	issuerUUID = uuid.MustParse("0b7b3c8e-3d5b-4f3a-9d59-7d2a2f6c9e01")
	nodeUUID   = uuid.MustParse("6f1c1c32-8b43-4c55-9a4f-6f1f2c7d7c11")
)

func newTestEncoder(t *testing.T, revisions RevisionCounter, counting RevisionCounting) *Encoder {
	t.Helper()

	linker, err := links.New(links.Config{
		BaseURL:      "http://localhost:8000",
		FileBases:    map[string]string{"public": "http://localhost:8000/sites/default/files"},
		FedoraScheme: "fedora",
		FedoraRoot:   "http://fcrepo:8080/fcrepo/rest/",
	})
	require.NoError(t, err)

	return New(linker, revisions, Options{RevisionCounting: counting})
}

func issuer() *domain.Identity {
	return &domain.Identity{ID: 1, UUID: issuerUUID, Name: "admin"}
}

func node() *domain.Entity {
	return &domain.Entity{Type: domain.EntityTypeNode, ID: 42, UUID: nodeUUID, Label: "Scan"}
}

func derivativeRequest() *domain.DerivativeJobRequest {
	return &domain.DerivativeJobRequest{
		SubjectEntityID:     42,
		SubjectType:         domain.EntityTypeNode,
		QueueName:           "extract-text",
		EventKind:           domain.EventGenerateDerivative,
		Mimetype:            "text/plain",
		SourceArtifactURI:   "http://localhost:8000/sites/default/files/2024-01/scan.tif",
		DestinationURI:      "http://localhost:8000/node/42/media/extracted_text/9",
		ResolvedStoragePath: "2024-03/42-ExtractedText.txt",
		FileUploadURI:       "fedora://2024-03/42-ExtractedText.txt",
		Derivative:          true,
	}
}

func TestEncoder_DerivativeEvent(t *testing.T) {
	revisions := new(mockRevisions)
	enc := newTestEncoder(t, revisions, RevisionCountingStored)

	event, err := enc.Encode(context.Background(), node(), issuer(), derivativeRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ActivityStreamsContext, event.Context)
	assert.Equal(t, "Activity", event.Type)
	assert.Equal(t, "Generate Derivative", event.Summary)
	assert.Equal(t, "http://fcrepo:8080/fcrepo/rest/", event.Target)
	assert.Nil(t, event.Object.IsNewVersion)
	revisions.AssertNotCalled(t, "CountRevisions", mock.Anything, mock.Anything, mock.Anything)

	assert.Equal(t, "Person", event.Actor.Type)
	assert.Equal(t, "urn:uuid:"+issuerUUID.String(), event.Actor.ID)
	require.Len(t, event.Actor.URL, 1)
	assert.Equal(t, "http://localhost:8000/user/1", event.Actor.URL[0].Href)

	assert.Equal(t, "urn:uuid:"+nodeUUID.String(), event.Object.ID)
	require.Len(t, event.Object.URL, 3)
	assert.Equal(t, domain.Link{Name: "Canonical", Type: "Link", Href: "http://localhost:8000/node/42", MediaType: "text/html", Rel: "canonical"}, event.Object.URL[0])
	assert.Equal(t, "http://localhost:8000/node/42?_format=json", event.Object.URL[1].Href)
	assert.Equal(t, "application/ld+json", event.Object.URL[2].MediaType)
}

func TestEncoder_AttachmentRoundTrip(t *testing.T) {
	enc := newTestEncoder(t, new(mockRevisions), RevisionCountingStored)

	event, err := enc.Encode(context.Background(), node(), issuer(), derivativeRequest())
	require.NoError(t, err)

	body, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded struct {
		Attachment struct {
			Type      string         `json:"type"`
			Content   map[string]any `json:"content"`
			MediaType string         `json:"mediaType"`
		} `json:"attachment"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))

	keys := make([]string, 0, len(decoded.Attachment.Content))
	for k := range decoded.Attachment.Content {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"source_uri", "destination_uri", "file_upload_uri", "mimetype", "args"}, keys)
	assert.Equal(t, "Object", decoded.Attachment.Type)
	assert.Equal(t, "application/json", decoded.Attachment.MediaType)
	assert.Equal(t, "", decoded.Attachment.Content["args"])

	for _, routingOnly := range []string{"source_term_uri", "derivative_term_uri", "path", "scheme", "destination_media_type", "queue", "event"} {
		assert.NotContains(t, string(body), `"`+routingOnly+`"`)
	}
}

func TestEncoder_LifecycleEvent(t *testing.T) {
	tests := []struct {
		name     string
		counting RevisionCounting
		stored   int
		want     bool
	}{
		{name: "stored single revision", counting: RevisionCountingStored, stored: 1, want: false},
		{name: "stored two revisions", counting: RevisionCountingStored, stored: 2, want: true},
		{name: "pending first save", counting: RevisionCountingPending, stored: 0, want: false},
		{name: "pending second save", counting: RevisionCountingPending, stored: 1, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			revisions := new(mockRevisions)
			revisions.On("CountRevisions", ctx, domain.EntityTypeNode, int64(42)).Return(tt.stored, nil)

			enc := newTestEncoder(t, revisions, tt.counting)
			req := &domain.DerivativeJobRequest{SubjectEntityID: 42, EventKind: domain.EventUpdate}

			event, err := enc.Encode(ctx, node(), issuer(), req)
			require.NoError(t, err)

			assert.Equal(t, "Update", event.Type)
			assert.Equal(t, "Update a Node", event.Summary)
			require.NotNil(t, event.Object.IsNewVersion)
			assert.Equal(t, tt.want, *event.Object.IsNewVersion)
			assert.Nil(t, event.Attachment)
		})
	}
}

func TestEncoder_RevisionCountFailure(t *testing.T) {
	ctx := context.Background()
	revisions := new(mockRevisions)
	revisions.On("CountRevisions", ctx, domain.EntityTypeNode, int64(42)).Return(0, errors.New("db down"))

	_, err := newTestEncoder(t, revisions, RevisionCountingStored).
		Encode(ctx, node(), issuer(), &domain.DerivativeJobRequest{EventKind: domain.EventCreate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count revisions")
}

func TestEncoder_FileSubject(t *testing.T) {
	revisions := new(mockRevisions)
	file := &domain.Entity{
		Type: domain.EntityTypeFile,
		ID:   3,
		UUID: uuid.New(),
		File: &domain.File{ID: 3, URI: "public://2024-01/scan.tif", MimeType: "image/tiff"},
	}
	req := &domain.DerivativeJobRequest{EventKind: domain.EventCreate, FedoraURI: ""}

	event, err := newTestEncoder(t, revisions, RevisionCountingStored).Encode(context.Background(), file, issuer(), req)
	require.NoError(t, err)

	require.Len(t, event.Object.URL, 1)
	assert.Equal(t, "http://localhost:8000/sites/default/files/2024-01/scan.tif", event.Object.URL[0].Href)
	assert.Equal(t, "image/tiff", event.Object.URL[0].MediaType)
	assert.Equal(t, "Create a File", event.Summary)
	require.NotNil(t, event.Object.IsNewVersion)
	assert.False(t, *event.Object.IsNewVersion)
	revisions.AssertNotCalled(t, "CountRevisions", mock.Anything, mock.Anything, mock.Anything)
}

func TestEncoder_MediaSubject(t *testing.T) {
	ctx := context.Background()
	revisions := new(mockRevisions)
	revisions.On("CountRevisions", ctx, domain.EntityTypeMedia, int64(7)).Return(1, nil)

	media := &domain.Entity{
		Type: domain.EntityTypeMedia,
		ID:   7,
		UUID: uuid.New(),
		File: &domain.File{ID: 3, URI: "public://2024-01/scan.tif", MimeType: "image/tiff"},
	}
	req := &domain.DerivativeJobRequest{EventKind: domain.EventUpdate, SourceFieldName: "field_media_image"}

	event, err := newTestEncoder(t, revisions, RevisionCountingStored).Encode(ctx, media, issuer(), req)
	require.NoError(t, err)

	require.Len(t, event.Object.URL, 4)
	describes := event.Object.URL[3]
	assert.Equal(t, "describes", describes.Rel)
	assert.Equal(t, "http://localhost:8000/sites/default/files/2024-01/scan.tif", describes.Href)
	assert.Equal(t, "image/tiff", describes.MediaType)

	require.NotNil(t, event.Attachment)
	assert.Equal(t, map[string]string{"source_field": "field_media_image"}, event.Attachment.Content)
}

func TestEncoder_NoTarget(t *testing.T) {
	linker, err := links.New(links.Config{BaseURL: "http://localhost:8000"})
	require.NoError(t, err)

	enc := New(linker, new(mockRevisions), Options{})
	event, err := enc.Encode(context.Background(), node(), issuer(), derivativeRequest())
	require.NoError(t, err)

	body, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"target"`)
}

func TestAttachmentContent(t *testing.T) {
	full := &domain.DerivativeJobRequest{
		Derivative:        true,
		SourceArtifactURI: "http://localhost:8000/_flysystem/fedora/scan.tif",
		DestinationURI:    "private://derivatives/1-ExtractedText.txt",
		FileUploadURI:     "http://localhost:8000/node/1/media/extracted_text/2",
		SourceFieldName:   "field_media_image",
		FedoraURI:         "http://localhost:8080/fcrepo/rest/scan.tif",
		ExtraArgs:         "-l eng",
		Mimetype:          "text/plain",
	}

	tests := []struct {
		name string
		req  *domain.DerivativeJobRequest
		want map[string]string
	}{
		{
			name: "every key set",
			req:  full,
			want: map[string]string{
				domain.AttachmentSourceURI:      full.SourceArtifactURI,
				domain.AttachmentDestinationURI: full.DestinationURI,
				domain.AttachmentFileUploadURI:  full.FileUploadURI,
				domain.AttachmentSourceField:    full.SourceFieldName,
				domain.AttachmentFedoraURI:      full.FedoraURI,
				domain.AttachmentArgs:           full.ExtraArgs,
				domain.AttachmentMimetype:       full.Mimetype,
			},
		},
		{
			name: "derivative keeps empty args and mimetype",
			req:  &domain.DerivativeJobRequest{Derivative: true},
			want: map[string]string{
				domain.AttachmentArgs:     "",
				domain.AttachmentMimetype: "",
			},
		},
		{
			name: "non-derivative drops empty keys",
			req:  &domain.DerivativeJobRequest{SourceArtifactURI: "http://localhost:8000/node/1"},
			want: map[string]string{
				domain.AttachmentSourceURI: "http://localhost:8000/node/1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := AttachmentContent(tt.req)
			assert.Equal(t, tt.want, content)
			for key := range content {
				assert.Contains(t, domain.AttachmentKeys, key)
			}
		})
	}
}
