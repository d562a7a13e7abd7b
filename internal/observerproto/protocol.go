package observerproto

import "hivecore.ai/internal/sim/regulator"

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTick      = "TICK"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the room filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Rooms limits the stream to these rooms; empty means every room.
	Rooms []string `json:"rooms,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string   `json:"protocol_version"`
	Tick            uint64   `json:"tick"`
	TickRateHz      int      `json:"tick_rate_hz"`
	Rooms           []string `json:"rooms"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string                 `json:"type"`
	ProtocolVersion string                 `json:"protocol_version"`
	Tick            uint64                 `json:"tick"`
	Digest          string                 `json:"digest"`
	Rooms           []regulator.RoomReport `json:"rooms"`
}
