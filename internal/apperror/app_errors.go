package apperror

import "errors"

var (
	ErrGameFinished    = errors.New("game is already finished")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrInvalidStep     = errors.New("invalid history step")
	ErrInvalidState    = errors.New("invalid game state")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionRequired = errors.New("session id is required")
	ErrSessionConflict = errors.New("session was changed by another connection")
)
