// Package streaming defines the envelopes a live recording is streamed in.
package streaming

import (
	"encoding/json"

	"github.com/skyward/combat-core/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMission = "start_mission"
	TypeEndMission   = "end_mission"
	TypeAddEnemy     = "add_enemy"
	TypePlayerState  = "player_state"
	TypeEnemyState   = "enemy_state"
	TypeEvent        = "event"
	TypeTelemetry    = "telemetry"
	TypePerformance  = "performance"
	TypeSnapshot     = "snapshot"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMissionPayload carries mission and world data.
type StartMissionPayload struct {
	Mission *core.Mission `json:"mission"`
	World   *core.World   `json:"world"`
}

// NewEnvelope encodes payload under msgType.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
