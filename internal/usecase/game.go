package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

// GameUseCase applies presentation commands to the engine of a browser session.
// Every command loads the session, runs, stores the result and returns the new view
// inside one optimistic transaction, so tabs sharing a session do not overwrite each other.
type GameUseCase interface {
	GetOrCreateGame(ctx context.Context, sessionID string) (*tictactoe.View, error)
	NewGame(ctx context.Context, sessionID string) (*tictactoe.View, error)

	PlaceMark(ctx context.Context, sessionID string, cell int) (*tictactoe.View, error)
	JumpTo(ctx context.Context, sessionID string, step int) (*tictactoe.View, error)
	ToggleListOrder(ctx context.Context, sessionID string) (*tictactoe.View, error)
}

type sessionRepo interface {
	Save(ctx context.Context, sessionID string, state *tictactoe.State) error
	GetByID(ctx context.Context, sessionID string) (*tictactoe.State, error)
	Update(ctx context.Context, sessionID string, fn func(state *tictactoe.State) (*tictactoe.State, error)) error
}

type gameUseCase struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
}

func NewGameUseCase(logger *slog.Logger, sessionRepo sessionRepo) GameUseCase {
	return &gameUseCase{
		logger:      logger.With("component", "gameUseCase"),
		sessionRepo: sessionRepo,
	}
}

// GetOrCreateGame returns the stored game without writing it, and stores a new
// game for unknown or corrupted sessions.
func (that *gameUseCase) GetOrCreateGame(ctx context.Context, sessionID string) (*tictactoe.View, error) {
	if sessionID == "" {
		return nil, apperror.ErrSessionRequired
	}

	state, err := that.sessionRepo.GetByID(ctx, sessionID)
	if err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err == nil {
		if engine, restoreErr := tictactoe.Restore(state, tictactoe.WithLogger(that.logger)); restoreErr == nil {
			view := engine.View()
			return &view, nil
		}
	}

	return that.apply(ctx, sessionID, func(*tictactoe.Engine) error {
		return nil
	})
}

func (that *gameUseCase) NewGame(ctx context.Context, sessionID string) (*tictactoe.View, error) {
	if sessionID == "" {
		return nil, apperror.ErrSessionRequired
	}

	engine := that.newEngine()
	if err := that.sessionRepo.Save(ctx, sessionID, engine.State()); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	view := engine.View()

	return &view, nil
}

func (that *gameUseCase) PlaceMark(ctx context.Context, sessionID string, cell int) (*tictactoe.View, error) {
	return that.apply(ctx, sessionID, func(engine *tictactoe.Engine) error {
		engine.PlaceMark(cell)
		return nil
	})
}

func (that *gameUseCase) JumpTo(ctx context.Context, sessionID string, step int) (*tictactoe.View, error) {
	return that.apply(ctx, sessionID, func(engine *tictactoe.Engine) error {
		if !engine.CanJumpTo(step) {
			return fmt.Errorf("%w: %d", apperror.ErrInvalidStep, step)
		}

		engine.JumpTo(step)

		return nil
	})
}

func (that *gameUseCase) ToggleListOrder(ctx context.Context, sessionID string) (*tictactoe.View, error) {
	return that.apply(ctx, sessionID, func(engine *tictactoe.Engine) error {
		engine.ToggleListOrder()
		return nil
	})
}

func (that *gameUseCase) apply(ctx context.Context, sessionID string, command func(engine *tictactoe.Engine) error) (*tictactoe.View, error) {
	if sessionID == "" {
		return nil, apperror.ErrSessionRequired
	}

	var view tictactoe.View

	err := that.sessionRepo.Update(ctx, sessionID, func(state *tictactoe.State) (*tictactoe.State, error) {
		engine := that.restoreEngine(state)
		if err := command(engine); err != nil {
			return nil, err
		}

		view = engine.View()

		return engine.State(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return &view, nil
}

// restoreEngine rebuilds the session engine, starting a new game for unknown or corrupted sessions.
func (that *gameUseCase) restoreEngine(state *tictactoe.State) *tictactoe.Engine {
	log := that.logger.With("method", "restoreEngine")

	if state == nil {
		log.Debug("session not found, starting a new game")
		return that.newEngine()
	}

	engine, err := tictactoe.Restore(state, tictactoe.WithLogger(that.logger))
	if err != nil {
		log.Warn("stored session is invalid, starting a new game", "error", err)
		return that.newEngine()
	}

	return engine
}

func (that *gameUseCase) newEngine() *tictactoe.Engine {
	return tictactoe.NewEngine(tictactoe.WithLogger(that.logger))
}
