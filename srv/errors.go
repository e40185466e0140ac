package srv

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full (max 2 players)")
	ErrInvalidToken = errors.New("reconnect token invalid")
)

// Cast rejection reasons, surfaced only to the caster.
const (
	RejectUnknownSpell     = "UnknownSpell"
	RejectCooldownActive   = "CooldownActive"
	RejectInsufficientMana = "InsufficientMana"
)
