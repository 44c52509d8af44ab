package domain

import (
	"fmt"
	"strings"
)

// EventKind is the lifecycle event an action reports
type EventKind string

// Event kind constants
const (
	EventCreate             EventKind = "Create"
	EventUpdate             EventKind = "Update"
	EventDelete             EventKind = "Delete"
	EventGenerateDerivative EventKind = "Generate Derivative"
)

// Valid reports whether k is one of the known event kinds
func (k EventKind) Valid() bool {
	switch k {
	case EventCreate, EventUpdate, EventDelete, EventGenerateDerivative:
		return true
	default:
		return false
	}
}

// JobKind selects how a job builds its request
type JobKind string

// Job kind constants
const (
	// JobKindEmit publishes a plain lifecycle notification
	JobKindEmit JobKind = "emit"
	// JobKindGenerateDerivative requests a derivative media for a node
	JobKindGenerateDerivative JobKind = "generate_derivative"
	// JobKindGenerateDerivativeFile requests a file to be attached to an existing media field
	JobKindGenerateDerivativeFile JobKind = "generate_derivative_file"
)

// Defaults applied to derivative jobs when the configuration leaves them blank
const (
	DefaultDerivativeQueue     = "islandora-connector-houdini"
	DefaultSourceRoleURI       = "http://pcdm.org/use#OriginalFile"
	DefaultNodePathTemplate    = "[date:custom:Y]-[date:custom:m]/[node:nid].bin"
	DefaultMediaPathTemplate   = "[date:custom:Y]-[date:custom:m]/[media:mid].bin"
	DefaultMediaSourceField    = "field_media_file"
	DefaultDerivativeEventKind = EventGenerateDerivative
)

// Trigger binds a job to a lifecycle event on an entity type
type Trigger struct {
	EntityType EntityType `yaml:"entity_type"`
	Event      EventKind  `yaml:"event"`
}

// JobConfiguration is the operator-authored description of one action
type JobConfiguration struct {
	Name                 string            `yaml:"name"`
	Kind                 JobKind           `yaml:"kind"`
	QueueName            string            `yaml:"queue"`
	EventKind            EventKind         `yaml:"event"`
	SourceRoleURI        string            `yaml:"source_term_uri"`
	DerivativeRoleURI    string            `yaml:"derivative_term_uri"`
	Mimetype             string            `yaml:"mimetype"`
	ExtraArgs            string            `yaml:"args"`
	PathTemplate         string            `yaml:"path"`
	StorageScheme        string            `yaml:"scheme"`
	DestinationMediaType string            `yaml:"destination_media_type"`
	DestinationFieldName string            `yaml:"destination_field_name"`
	SourceFieldName      string            `yaml:"source_field_name"`
	Headers              map[string]string `yaml:"headers"`
	Triggers             []Trigger         `yaml:"triggers"`
}

// IsDerivative reports whether the job requests a derivative from a worker
func (j *JobConfiguration) IsDerivative() bool {
	return j.Kind == JobKindGenerateDerivative || j.Kind == JobKindGenerateDerivativeFile
}

// ApplyDefaults fills blank fields with the per-kind defaults
func (j *JobConfiguration) ApplyDefaults() {
	if j.Kind == "" {
		j.Kind = JobKindEmit
	}

	if j.Kind == JobKindEmit {
		if j.EventKind == "" {
			j.EventKind = EventCreate
		}
		return
	}

	if j.QueueName == "" {
		j.QueueName = DefaultDerivativeQueue
	}
	if j.EventKind == "" {
		j.EventKind = DefaultDerivativeEventKind
	}
	if j.SourceRoleURI == "" && j.Kind == JobKindGenerateDerivative {
		j.SourceRoleURI = DefaultSourceRoleURI
	}

	j.PathTemplate = strings.Trim(j.PathTemplate, `\/`)
	if j.PathTemplate == "" {
		if j.Kind == JobKindGenerateDerivativeFile {
			j.PathTemplate = DefaultMediaPathTemplate
		} else {
			j.PathTemplate = DefaultNodePathTemplate
		}
	}

	if j.Kind == JobKindGenerateDerivativeFile && j.SourceFieldName == "" {
		j.SourceFieldName = DefaultMediaSourceField
	}
}

// Validate checks the configuration once at the boundary
func (j *JobConfiguration) Validate() error {
	if strings.TrimSpace(j.QueueName) == "" {
		return fmt.Errorf("%w: queue name is required", ErrInvalidConfiguration)
	}

	if !j.EventKind.Valid() {
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidConfiguration, j.EventKind)
	}

	for _, trigger := range j.Triggers {
		if !trigger.EntityType.Valid() {
			return fmt.Errorf("%w: unknown trigger entity type %q", ErrInvalidConfiguration, trigger.EntityType)
		}
		if !trigger.Event.Valid() {
			return fmt.Errorf("%w: unknown trigger event %q", ErrInvalidConfiguration, trigger.Event)
		}
	}

	switch j.Kind {
	case JobKindEmit:
		if j.Mimetype == "" {
			return nil
		}

	case JobKindGenerateDerivative:
		if j.SourceRoleURI == "" {
			return fmt.Errorf("%w: source term uri is required", ErrInvalidConfiguration)
		}
		if j.DerivativeRoleURI == "" {
			return fmt.Errorf("%w: derivative term uri is required", ErrInvalidConfiguration)
		}
		if j.DestinationMediaType == "" {
			return fmt.Errorf("%w: destination media type is required", ErrInvalidConfiguration)
		}
		if j.StorageScheme == "" {
			return fmt.Errorf("%w: storage scheme is required", ErrInvalidConfiguration)
		}

	case JobKindGenerateDerivativeFile:
		if j.DestinationFieldName == "" {
			return fmt.Errorf("%w: destination field name is required", ErrInvalidConfiguration)
		}

	default:
		return fmt.Errorf("%w: unknown job kind %q", ErrInvalidConfiguration, j.Kind)
	}

	return ValidateMimetype(j.Mimetype)
}

// ValidateMimetype requires exactly one "/" with a non-empty subtype
func ValidateMimetype(mimetype string) error {
	parts := strings.Split(mimetype, "/")
	if len(parts) != 2 || parts[1] == "" {
		return fmt.Errorf("%w: please enter a mimetype (e.g. image/jpeg, video/mp4, audio/mp3), got %q",
			ErrInvalidConfiguration, mimetype)
	}
	return nil
}

// Matches reports whether the job is triggered by event on entityType
func (j *JobConfiguration) Matches(entityType EntityType, event EventKind) bool {
	for _, trigger := range j.Triggers {
		if trigger.EntityType == entityType && trigger.Event == event {
			return true
		}
	}
	return false
}
