package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandJoin   CommandType = "Join"
	CommandLeave  CommandType = "Leave"
	CommandAttack CommandType = "Attack"
	CommandMove   CommandType = "Move"
	CommandRetune CommandType = "Retune"
)

// JoinCommand spawns a player for a session.
type JoinCommand struct {
	Session string `json:"session"`
	Team    string `json:"team,omitempty"`
}

// LeaveCommand removes a player.
type LeaveCommand struct {
	Reason string `json:"reason,omitempty"`
}

// MoveCommand carries the desired movement vector.
type MoveCommand struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// AttackCommand requests an attack, optionally along an explicit direction.
type AttackCommand struct {
	Directed bool    `json:"directed"`
	DirX     float64 `json:"dirX"`
	DirY     float64 `json:"dirY"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64         `json:"originTick"`
	ActorID    string         `json:"actorId"`
	Type       CommandType    `json:"type"`
	IssuedAt   time.Time      `json:"issuedAt"`
	Join       *JoinCommand   `json:"join,omitempty"`
	Leave      *LeaveCommand  `json:"leave,omitempty"`
	Move       *MoveCommand   `json:"move,omitempty"`
	Attack     *AttackCommand `json:"attack,omitempty"`
	Retune     *Tuning        `json:"retune,omitempty"`
}
