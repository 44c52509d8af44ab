package domain

// ActivityStreamsContext is the fixed namespace of every notification
const ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"

// NotificationEvent is the wire document published to the broker.
// It is built once per dispatch attempt and never persisted.
type NotificationEvent struct {
	Context    string      `json:"@context"`
	Actor      Actor       `json:"actor"`
	Object     Object      `json:"object"`
	Target     string      `json:"target,omitempty"`
	Type       string      `json:"type"`
	Summary    string      `json:"summary"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Actor identifies who issued the event
type Actor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	URL  []Link `json:"url"`
}

// Object identifies the subject of the event
type Object struct {
	ID           string `json:"id"`
	URL          []Link `json:"url"`
	IsNewVersion *bool  `json:"isNewVersion,omitempty"`
}

// Link is a typed reference to a representation of an actor or object
type Link struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Href      string `json:"href"`
	MediaType string `json:"mediaType"`
	Rel       string `json:"rel"`
}

// Attachment carries the whitelisted job parameters
type Attachment struct {
	Type      string            `json:"type"`
	Content   map[string]string `json:"content"`
	MediaType string            `json:"mediaType"`
}
