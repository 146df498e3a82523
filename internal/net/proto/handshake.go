package proto

// Version is bumped on any incompatible change to the packet catalogue.
const Version = 1

// JoinRequest is the optional JSON body posted to /join.
type JoinRequest struct {
	Ver  int    `json:"ver,omitempty"`
	Name string `json:"name"`
}

// JoinResponse is the JSON body returned by /join. The client presents
// PlayerID when upgrading to the websocket.
type JoinResponse struct {
	Ver       int     `json:"ver"`
	PlayerID  string  `json:"playerId"`
	SessionID string  `json:"sessionId"`
	Gameplay  string  `json:"gameplay"`
	Setting   float64 `json:"setting"`
	TickRate  int     `json:"tickRate"`
	Started   bool    `json:"started"`
}

// JoinRejected is returned by /join when the session cannot take the player.
type JoinRejected struct {
	Ver    int    `json:"ver"`
	Reason string `json:"reason"`
}

// Join rejection reasons.
const (
	RejectSessionFull    = "session_full"
	RejectSessionStarted = "session_started"
	RejectUnavailable    = "session_unavailable"
)
