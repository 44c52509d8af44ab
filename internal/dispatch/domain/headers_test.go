package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageHeaders(t *testing.T) {
	t.Run("keys are case sensitive", func(t *testing.T) {
		h := NewMessageHeaders()
		h.Set("Authorization", "Bearer abc")

		assert.True(t, h.Has("Authorization"))
		assert.False(t, h.Has("authorization"))
	})

	t.Run("insertion order is kept on replace", func(t *testing.T) {
		h := NewMessageHeaders()
		h.Set("persistent", "true")
		h.Set("Authorization", "Bearer abc")
		h.Set("persistent", "false")

		assert.Equal(t, []Header{
			{Key: "persistent", Value: "false"},
			{Key: "Authorization", Value: "Bearer abc"},
		}, h.All())
		assert.Equal(t, 2, h.Len())
	})

	t.Run("get missing key", func(t *testing.T) {
		h := NewMessageHeaders()
		v, ok := h.Get("missing")
		assert.False(t, ok)
		assert.Empty(t, v)
	})
}

func TestErrorClassification(t *testing.T) {
	loop := NewConfigurationError("resolve", ErrLoopDetected)
	transport := NewTransportError("send", assert.AnError)

	assert.True(t, IsLoop(loop))
	assert.False(t, IsTransport(loop))
	assert.True(t, IsTransport(transport))
	assert.ErrorIs(t, transport, assert.AnError)
	assert.Equal(t, "broker send: "+assert.AnError.Error(), transport.Error())
}
