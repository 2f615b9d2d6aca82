package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

// MoveState is the stored form of a history entry. Cell is -1 for the initial board.
type MoveState struct {
	Board [entity.BoardSize]string `json:"board"`
	Cell  int                      `json:"cell"`
}

// State is the stored form of an engine.
type State struct {
	History    []MoveState `json:"history"`
	StepNumber int         `json:"step_number"`
	Selected   int         `json:"selected"`
	Descending bool        `json:"descending"`
}

func (that *Engine) State() *State {
	history := make([]MoveState, 0, len(that.history))
	for _, move := range that.history {
		history = append(history, MoveState{
			Board: move.Board.Strings(),
			Cell:  move.Cell,
		})
	}

	return &State{
		History:    history,
		StepNumber: that.stepNumber,
		Selected:   that.selected,
		Descending: that.descending,
	}
}

// Restore rebuilds an engine from a stored state, rejecting any history that
// the engine itself could not have produced.
func Restore(state *State, opts ...Option) (*Engine, error) {
	if state == nil || len(state.History) == 0 {
		return nil, fmt.Errorf("%w: empty history", apperror.ErrInvalidState)
	}

	history, err := restoreHistory(state.History)
	if err != nil {
		return nil, err
	}

	if state.StepNumber < 0 || state.StepNumber >= len(history) {
		return nil, fmt.Errorf("%w: step %d outside history of %d entries", apperror.ErrInvalidState, state.StepNumber, len(history))
	}

	if state.Selected != NoSelection && (state.Selected < 0 || state.Selected >= len(history)) {
		return nil, fmt.Errorf("%w: selected step %d outside history", apperror.ErrInvalidState, state.Selected)
	}

	engine := NewEngine(opts...)
	engine.history = history
	engine.stepNumber = state.StepNumber
	engine.selected = state.Selected
	engine.descending = state.Descending

	return engine, nil
}

func restoreHistory(states []MoveState) ([]entity.Move, error) {
	history := make([]entity.Move, 0, len(states))

	for step, moveState := range states {
		board, err := parseBoard(moveState.Board)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}

		if step == 0 {
			if moveState.Cell != entity.NoCell || board != (entity.Board{}) {
				return nil, fmt.Errorf("%w: history must start with the empty board", apperror.ErrInvalidState)
			}

			history = append(history, entity.StartMove())
			continue
		}

		prev := history[step-1].Board
		if err = validateTransition(prev, board, moveState.Cell, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}

		history = append(history, entity.Move{Board: board, Cell: moveState.Cell})
	}

	return history, nil
}

// validateTransition checks that board is prev with exactly one more mark,
// placed on an empty cell by the player whose turn it was.
func validateTransition(prev, board entity.Board, cell, step int) error {
	if !entity.IsValidCell(cell) {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidState, apperror.ErrInvalidCell)
	}

	if entity.EvaluateWinner(prev).IsFinished() {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidState, apperror.ErrGameFinished)
	}

	if prev[cell] != entity.EmptyCell {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidState, apperror.ErrCellOccupied)
	}

	mark := entity.PlayerX
	if (step-1)%2 == 1 {
		mark = entity.PlayerO
	}

	if prev.Place(cell, mark) != board {
		return fmt.Errorf("%w: board does not follow from the previous one", apperror.ErrInvalidState)
	}

	return nil
}

func parseBoard(cells [entity.BoardSize]string) (entity.Board, error) {
	var board entity.Board

	for i, cell := range cells {
		mark := entity.Mark(cell)
		if !mark.IsValid() {
			return entity.Board{}, fmt.Errorf("%w: unknown mark %q in cell %d", apperror.ErrInvalidState, cell, i)
		}

		board[i] = mark
	}

	return board, nil
}
