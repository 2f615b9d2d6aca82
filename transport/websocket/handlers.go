package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

const (
	actionConnect = "connect"
	actionNewGame = "game:new"
	actionTurn    = "game:turn"
	actionJump    = "game:jump"
	actionOrder   = "game:order"
	actionError   = "error"
)

var (
	errCellRequired = errors.New("cell is required")
	errStepRequired = errors.New("step is required")
)

// handleConnect attaches the connection to a session and returns its game.
// A session id in the payload takes precedence over the cookie.
func (that *Server) handleConnect(ctx context.Context, conn *connection, payload *Payload) (*tictactoe.View, error) {
	if payload.SessionID != "" {
		conn.sessionID = payload.SessionID
	}

	view, err := that.gameUseCase.GetOrCreateGame(ctx, conn.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create game: %w", err)
	}

	that.logger.Info("player connected", "sessionID", conn.sessionID)

	return view, nil
}

func (that *Server) handleNewGame(ctx context.Context, conn *connection, _ *Payload) (*tictactoe.View, error) {
	view, err := that.gameUseCase.NewGame(ctx, conn.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to start new game: %w", err)
	}

	return view, nil
}

func (that *Server) handleTurn(ctx context.Context, conn *connection, payload *Payload) (*tictactoe.View, error) {
	if payload.Cell == nil {
		return nil, errCellRequired
	}

	view, err := that.gameUseCase.PlaceMark(ctx, conn.sessionID, *payload.Cell)
	if err != nil {
		return nil, fmt.Errorf("failed to place mark: %w", err)
	}

	return view, nil
}

func (that *Server) handleJump(ctx context.Context, conn *connection, payload *Payload) (*tictactoe.View, error) {
	if payload.Step == nil {
		return nil, errStepRequired
	}

	view, err := that.gameUseCase.JumpTo(ctx, conn.sessionID, *payload.Step)
	if err != nil {
		return nil, fmt.Errorf("failed to jump to step: %w", err)
	}

	return view, nil
}

func (that *Server) handleOrder(ctx context.Context, conn *connection, _ *Payload) (*tictactoe.View, error) {
	view, err := that.gameUseCase.ToggleListOrder(ctx, conn.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle list order: %w", err)
	}

	return view, nil
}

// errorMessage hides internal failures from the client.
func errorMessage(err error) string {
	for _, known := range []error{errCellRequired, errStepRequired, apperror.ErrInvalidStep, apperror.ErrSessionRequired, apperror.ErrSessionConflict} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return "internal error"
}
