package tictactoe

import (
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

// NoSelection is reported by Selected when no history entry was jumped to.
const NoSelection = -1

// Engine holds the move history of one game and the cursor into it.
// It is not safe for concurrent use: one presentation loop owns it.
type Engine struct {
	logger *slog.Logger

	history    []entity.Move
	stepNumber int
	selected   int
	descending bool
}

type Option func(*Engine)

// WithLogger attaches a logger used to report rejected commands at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(that *Engine) {
		that.logger = logger.With("component", "engine")
	}
}

func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		logger:   slog.New(slog.DiscardHandler),
		history:  []entity.Move{entity.StartMove()},
		selected: NoSelection,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// PlaceMark fills the cell on the displayed board for the player whose turn it is.
// Moves made from an earlier step discard the later history. Invalid moves are ignored.
func (that *Engine) PlaceMark(cell int) {
	if err := that.validateMove(cell); err != nil {
		that.logger.Debug("mark rejected", "cell", cell, "step", that.stepNumber, "error", err)
		return
	}

	mark := that.NextPlayer()
	history := that.history[:that.stepNumber+1]
	board := history[len(history)-1].Board.Place(cell, mark)

	that.history = append(history, entity.Move{Board: board, Cell: cell})
	that.stepNumber = len(that.history) - 1
	that.selected = NoSelection
}

// validateMove - checks if the move is valid on the displayed board.
func (that *Engine) validateMove(cell int) error {
	if !entity.IsValidCell(cell) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	board := that.Current()

	if entity.EvaluateWinner(board).IsFinished() {
		return apperror.ErrGameFinished
	}

	if board[cell] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// JumpTo moves the cursor to a recorded step. The step must exist in the history.
func (that *Engine) JumpTo(step int) {
	if !that.CanJumpTo(step) {
		panic(fmt.Errorf("%w: step %d outside history of %d entries", apperror.ErrInvalidStep, step, len(that.history)))
	}

	that.stepNumber = step
	that.selected = step
}

func (that *Engine) CanJumpTo(step int) bool {
	return step >= 0 && step < len(that.history)
}

func (that *Engine) ToggleListOrder() {
	that.descending = !that.descending
}

// Current returns the board at the cursor.
func (that *Engine) Current() entity.Board {
	return that.history[that.stepNumber].Board
}

func (that *Engine) StepNumber() int {
	return that.stepNumber
}

func (that *Engine) Len() int {
	return len(that.history)
}

// Selected returns the step most recently jumped to, or NoSelection.
func (that *Engine) Selected() int {
	return that.selected
}

func (that *Engine) IsDescending() bool {
	return that.descending
}

// History returns a copy of the recorded moves.
func (that *Engine) History() []entity.Move {
	history := make([]entity.Move, len(that.history))
	copy(history, that.history)

	return history
}

// NextPlayer returns X on even steps and O on odd ones.
func (that *Engine) NextPlayer() entity.Mark {
	if that.stepNumber%2 == 0 {
		return entity.PlayerX
	}

	return entity.PlayerO
}

// Outcome evaluates the board at the cursor.
func (that *Engine) Outcome() entity.Outcome {
	return entity.EvaluateWinner(that.Current())
}

func (that *Engine) CurrentStatusText() string {
	return statusText(that.Outcome(), that.NextPlayer())
}

func statusText(outcome entity.Outcome, next entity.Mark) string {
	switch outcome.Result {
	case entity.ResultWinner:
		return "Winner: " + string(outcome.Winner)
	case entity.ResultDraw:
		return "Draw"
	default:
		return "Next player: " + string(next)
	}
}
