package events

import (
	"encoding/json"
	"fmt"
)

// Store operations a permission error can describe.
const (
	OpGet    = "get"
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpWrite  = "write"
)

// PermissionError is the structured form of an authorization-denied
// store failure. It carries enough context to diagnose the rejected
// request without digging through request logs.
type PermissionError struct {
	Path                string `json:"path"`
	Operation           string `json:"operation"`
	RequestResourceData any    `json:"requestResourceData,omitempty"`
	Auth                any    `json:"auth,omitempty"`
}

func NewPermissionError(path, operation string, resourceData, auth any) *PermissionError {
	return &PermissionError{
		Path:                path,
		Operation:           operation,
		RequestResourceData: resourceData,
		Auth:                auth,
	}
}

// Error embeds the denied request context as serialized JSON so a plain
// log line carries the full picture.
func (e *PermissionError) Error() string {
	ctx, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("permission denied: %s %s", e.Operation, e.Path)
	}
	return fmt.Sprintf("permission denied for %s on %s: %s", e.Operation, e.Path, ctx)
}

// PublishPermissionError reports e on the bus. Nil-safe on both sides so
// callers do not have to guard wiring gaps.
func PublishPermissionError(bus *Bus, e *PermissionError) {
	if bus == nil || e == nil {
		return
	}
	bus.Publish(EventPermissionError, e)
}
