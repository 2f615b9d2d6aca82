package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
)

const (
	orderLabelAsc  = "asc ▲"
	orderLabelDesc = "desc ▼"

	startLabel = "Go to game start"
)

// MoveEntry is one row of the move list.
type MoveEntry struct {
	Step       int                `json:"step"`
	Label      string             `json:"label"`
	Coordinate *entity.Coordinate `json:"coordinate,omitempty"`
	Selected   bool               `json:"selected"`
	Current    bool               `json:"current"`
}

// View is everything a presentation layer draws after a command.
type View struct {
	Board       [entity.BoardSize]string `json:"board"`
	WinningLine []int                    `json:"winning_line,omitempty"`
	Result      string                   `json:"result"`
	Winner      string                   `json:"winner,omitempty"`
	NextPlayer  string                   `json:"next_player,omitempty"`
	Status      string                   `json:"status"`
	StepNumber  int                      `json:"step_number"`
	Descending  bool                     `json:"descending"`
	OrderLabel  string                   `json:"order_label"`
	Moves       []MoveEntry              `json:"moves"`
}

func (that View) IsWinningCell(cell int) bool {
	for _, idx := range that.WinningLine {
		if idx == cell {
			return true
		}
	}

	return false
}

// View builds a snapshot of the displayed board, the status and the move list.
func (that *Engine) View() View {
	outcome := that.Outcome()
	next := that.NextPlayer()

	view := View{
		Board:      that.Current().Strings(),
		Result:     outcome.Result.String(),
		Status:     statusText(outcome, next),
		StepNumber: that.stepNumber,
		Descending: that.descending,
		OrderLabel: orderLabel(that.descending),
		Moves:      that.MoveEntries(),
	}

	switch {
	case outcome.HasWinner():
		view.Winner = string(outcome.Winner)
		view.WinningLine = outcome.Line[:]
	case !outcome.IsFinished():
		view.NextPlayer = string(next)
	}

	return view
}

// MoveEntries lists the history in the current list order.
func (that *Engine) MoveEntries() []MoveEntry {
	entries := make([]MoveEntry, 0, len(that.history))

	for i := range that.history {
		step := i
		if that.descending {
			step = len(that.history) - 1 - i
		}

		entries = append(entries, that.moveEntry(step))
	}

	return entries
}

func (that *Engine) moveEntry(step int) MoveEntry {
	move := that.history[step]

	entry := MoveEntry{
		Step:     step,
		Label:    startLabel,
		Selected: that.selected == step,
		Current:  that.stepNumber == step,
	}

	if coordinate, ok := move.Coordinate(); ok {
		entry.Coordinate = &coordinate
		entry.Label = fmt.Sprintf("Go to move #%d %s", step, coordinate)
	}

	return entry
}

func orderLabel(descending bool) string {
	if descending {
		return orderLabelDesc
	}

	return orderLabelAsc
}
