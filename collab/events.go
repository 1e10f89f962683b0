package collab

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Client → server event names.
const (
	EventJoinWorkspace  = "join-workspace"
	EventCodeChange     = "code-change"
	EventCursorMove     = "cursor-move"
	EventLeaveWorkspace = "leave-workspace"
)

// Server → client event names.
const (
	EventUsersUpdate   = "users-update"
	EventContentUpdate = "content-update"
	EventCursorUpdate  = "cursor-update"
)

type (
	joinPayload struct {
		WorkspaceID string `mapstructure:"workspaceId"`
		UserID      string `mapstructure:"userId"`
		Username    string `mapstructure:"username"`
	}

	cursorMovePayload struct {
		WorkspaceID string `mapstructure:"workspaceId"`
		Position    any    `mapstructure:"position"`
		UserID      string `mapstructure:"userId"`
	}

	leavePayload struct {
		WorkspaceID string `mapstructure:"workspaceId"`
	}

	// cursorUpdate is rebroadcast verbatim; positions are opaque to the
	// server and never persisted.
	cursorUpdate struct {
		Position any    `json:"position"`
		UserID   string `json:"userId"`
	}
)

// decodePayload decodes a raw socket.io argument into a typed payload.
// Strict decoding: a non-object argument or a field of the wrong type
// (e.g. non-string content) is an error, and the event is discarded.
func decodePayload(raw, out any) error {
	if raw == nil {
		return fmt.Errorf("missing payload")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: false,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func firstArg(datas []any) any {
	if len(datas) == 0 {
		return nil
	}
	return datas[0]
}
