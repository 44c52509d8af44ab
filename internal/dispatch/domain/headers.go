package domain

// Well-known message header keys
const (
	HeaderAuthorization = "Authorization"
	HeaderPersistent    = "persistent"
)

// Header is a single key/value pair
type Header struct {
	Key   string
	Value string
}

// MessageHeaders is an ordered, case-sensitive header set.
// Entries can be added or replaced, never removed.
type MessageHeaders struct {
	keys   []string
	values map[string]string
}

// NewMessageHeaders creates an empty header set
func NewMessageHeaders() *MessageHeaders {
	return &MessageHeaders{values: make(map[string]string)}
}

// Has reports whether key is present, comparing case-sensitively
func (h *MessageHeaders) Has(key string) bool {
	_, ok := h.values[key]
	return ok
}

// Get returns the value stored under key
func (h *MessageHeaders) Get(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Set stores value under key, keeping the original insertion position on replace
func (h *MessageHeaders) Set(key, value string) {
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Len returns the number of headers
func (h *MessageHeaders) Len() int {
	return len(h.keys)
}

// All returns the headers in insertion order
func (h *MessageHeaders) All() []Header {
	out := make([]Header, 0, len(h.keys))
	for _, k := range h.keys {
		out = append(out, Header{Key: k, Value: h.values[k]})
	}
	return out
}
