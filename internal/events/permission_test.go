package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionError_ErrorEmbedsContext(t *testing.T) {
	e := NewPermissionError("projects/p1", OpUpdate, map[string]any{"name": "x"}, nil)

	msg := e.Error()
	assert.Contains(t, msg, "permission denied")
	assert.Contains(t, msg, "projects/p1")
	assert.Contains(t, msg, OpUpdate)
	assert.Contains(t, msg, `"requestResourceData"`)
}

func TestPublishPermissionError(t *testing.T) {
	bus := NewBus()

	var got []*PermissionError
	bus.Subscribe(EventPermissionError, func(payload any) {
		pe, ok := payload.(*PermissionError)
		require.True(t, ok)
		got = append(got, pe)
	})

	e := NewPermissionError("notes", OpList, nil, nil)
	PublishPermissionError(bus, e)

	require.Len(t, got, 1)
	assert.Same(t, e, got[0])
}

func TestPublishPermissionError_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		PublishPermissionError(nil, NewPermissionError("x", OpGet, nil, nil))
		PublishPermissionError(NewBus(), nil)
	})
}
