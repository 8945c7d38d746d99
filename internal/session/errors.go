package session

import "errors"

var (
	ErrSessionNotFound = errors.New("chess session not found")
	ErrNoHistory       = errors.New("no moves available to undo")
	ErrLockUnavailable = errors.New("chess session busy")
	ErrSessionClosed   = errors.New("chess session closed")
	ErrTableFull       = errors.New("too many chess sessions")
	ErrOpponentTurn    = errors.New("computer is to move")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrDiverged        = errors.New("remote move diverged from local board")
	ErrRoomManaged     = errors.New("session is played through its room")
)
