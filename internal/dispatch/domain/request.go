package domain

// DerivativeJobRequest is built per invocation from a JobConfiguration and live lookups.
// Routing-only configuration (role URIs, path template, scheme, destination media type)
// never enters the request.
type DerivativeJobRequest struct {
	SubjectEntityID     int64
	SubjectType         EntityType
	QueueName           string
	EventKind           EventKind
	ExtraArgs           string
	Mimetype            string
	SourceArtifactURI   string
	DestinationURI      string
	ResolvedStoragePath string
	FileUploadURI       string
	SourceFieldName     string
	FedoraURI           string

	// Derivative is set for derivative-producing kinds; args and mimetype are then
	// always part of the attachment, even when blank.
	Derivative bool
}

// Attachment content keys, the only job parameters workers receive
const (
	AttachmentSourceURI      = "source_uri"
	AttachmentDestinationURI = "destination_uri"
	AttachmentFileUploadURI  = "file_upload_uri"
	AttachmentArgs           = "args"
	AttachmentMimetype       = "mimetype"
	AttachmentSourceField    = "source_field"
	AttachmentFedoraURI      = "fedora_uri"
)

// AttachmentKeys lists the whitelisted attachment keys
var AttachmentKeys = []string{
	AttachmentFileUploadURI,
	AttachmentFedoraURI,
	AttachmentSourceURI,
	AttachmentDestinationURI,
	AttachmentArgs,
	AttachmentMimetype,
	AttachmentSourceField,
}
