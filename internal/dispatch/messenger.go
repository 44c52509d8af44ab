package dispatch

import "sync"

// Message levels
const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// Messenger receives operator-facing messages produced while dispatching
type Messenger interface {
	AddError(text string)
	AddWarning(text string)
}

// Message is one operator-facing message
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Collector is a Messenger that keeps messages for the caller to render
type Collector struct {
	mu       sync.Mutex
	messages []Message
}

// NewCollector creates an empty Collector
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) AddError(text string) {
	c.add(LevelError, text)
}

func (c *Collector) AddWarning(text string) {
	c.add(LevelWarning, text)
}

func (c *Collector) add(level, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{Level: level, Text: text})
}

// Messages returns the collected messages in order
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

type discardMessenger struct{}

func (discardMessenger) AddError(string)   {}
func (discardMessenger) AddWarning(string) {}
