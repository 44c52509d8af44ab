package dto

// EventRequest reports a lifecycle event on one entity
type EventRequest struct {
	EntityType string `json:"entity_type" binding:"required"`
	EntityID   int64  `json:"entity_id" binding:"required,min=1"`
	Event      string `json:"event" binding:"required"`
	UserID     int64  `json:"user_id" binding:"required,min=1"`
}

// ExecuteActionRequest runs one named action on one entity
type ExecuteActionRequest struct {
	EntityType string `json:"entity_type" binding:"required"`
	EntityID   int64  `json:"entity_id" binding:"required,min=1"`
	UserID     int64  `json:"user_id" binding:"required,min=1"`
}

// OutcomeDTO is the result of one action
type OutcomeDTO struct {
	Action     string `json:"action"`
	Kind       string `json:"kind"`
	Queue      string `json:"queue,omitempty"`
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	Error      string `json:"error,omitempty"`
}

// MessageDTO is an operator-visible message
type MessageDTO struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// DispatchResponse is returned by both trigger endpoints
type DispatchResponse struct {
	Outcomes []OutcomeDTO `json:"outcomes"`
	Messages []MessageDTO `json:"messages"`
}

// TriggerDTO binds an action to an entity type and event
type TriggerDTO struct {
	EntityType string `json:"entity_type"`
	Event      string `json:"event"`
}

// ActionDTO describes one configured action
type ActionDTO struct {
	Name     string       `json:"name"`
	Kind     string       `json:"kind"`
	Queue    string       `json:"queue"`
	Event    string       `json:"event"`
	Mimetype string       `json:"mimetype,omitempty"`
	Triggers []TriggerDTO `json:"triggers"`
}

// ListActionsResponse lists the configured actions
type ListActionsResponse struct {
	Actions []ActionDTO `json:"actions"`
}
