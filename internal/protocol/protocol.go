// Package protocol defines the presentation feed wire format: JSON control
// messages for the handshake and input path, and zstd-compressed binary
// frames for mesh payloads.
package protocol

import "encoding/json"

const Version = "1"

// Message types.
const (
	TypeSubscribe = "SUBSCRIBE"
	TypeWelcome   = "WELCOME"
	TypeEdit      = "EDIT"
	TypeActor     = "ACTOR"
	TypeError     = "ERROR"
)

// Error codes carried by ERROR messages.
const (
	ErrBadRequest = "E_BAD_REQUEST"
	ErrBusy       = "E_BUSY"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// SUBSCRIBE (client -> server). First message on the feed connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name,omitempty"`
}

// WELCOME (server -> client). Handshake reply; binary frames follow.
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	WorldID         string `json:"world_id"`
	ChunkSize       int    `json:"chunk_size"`
}

// EDIT (client -> server). Writes a batch of voxels.
type EditMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Edits           []EditCell `json:"edits"`
}

// EditCell is one voxel write. Block 0 erases. A zero Color places the
// block's registry default paint.
type EditCell struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block uint8  `json:"block"`
	Color uint32 `json:"color,omitempty"`
}

// ACTOR (client -> server). Moves the interest point remesh scheduling
// prioritizes around.
type ActorMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Pos             [3]float64 `json:"pos"`
}

// ERROR (server -> client).
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
