package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateWinner(t *testing.T) {
	t.Run("Returns the mark and the line for every winning combination", func(t *testing.T) {
		for _, mark := range []Mark{PlayerX, PlayerO} {
			for _, combo := range WinCombos {
				// Given: a board where a single line is filled with the same mark
				var board Board
				for _, cell := range combo {
					board[cell] = mark
				}

				// When: evaluating the board
				outcome := EvaluateWinner(board)

				// Then: that mark wins along exactly that line
				require.True(t, outcome.HasWinner(), "combo %v", combo)
				assert.Equal(t, mark, outcome.Winner)
				assert.Equal(t, combo, outcome.Line)
			}
		}
	})

	t.Run("Returns the first line in canonical order when two lines are complete", func(t *testing.T) {
		// Given: a board where X completes the top row and the left column
		board := Board{
			PlayerX, PlayerX, PlayerX,
			PlayerX, PlayerO, PlayerO,
			PlayerX, PlayerO, PlayerO,
		}

		// When: evaluating the board
		outcome := EvaluateWinner(board)

		// Then: the row is reported because rows are checked before columns
		require.True(t, outcome.HasWinner())
		assert.Equal(t, [3]int{0, 1, 2}, outcome.Line)
	})

	t.Run("Returns draw for a full board without three in a row", func(t *testing.T) {
		// Given: a full board with no winner
		board := Board{
			PlayerX, PlayerO, PlayerX,
			PlayerO, PlayerX, PlayerO,
			PlayerO, PlayerX, PlayerO,
		}

		// When: evaluating the board
		outcome := EvaluateWinner(board)

		// Then: the result is a draw
		assert.Equal(t, ResultDraw, outcome.Result)
		assert.True(t, outcome.IsFinished())
		assert.False(t, outcome.HasWinner())
	})

	t.Run("Returns none for a partially filled board", func(t *testing.T) {
		// Given: a board that is still being played
		board := Board{
			PlayerX, PlayerO, EmptyCell,
			EmptyCell, PlayerX, EmptyCell,
			EmptyCell, EmptyCell, PlayerO,
		}

		// When: evaluating the board
		outcome := EvaluateWinner(board)

		// Then: the game continues
		assert.Equal(t, ResultNone, outcome.Result)
		assert.False(t, outcome.IsFinished())
	})

	t.Run("Returns none for the empty board", func(t *testing.T) {
		outcome := EvaluateWinner(Board{})

		assert.Equal(t, ResultNone, outcome.Result)
	})
}

func TestEvaluateWinner_AntiDiagonal(t *testing.T) {
	// Given: a board won along the anti-diagonal
	board := Board{
		PlayerX, PlayerX, PlayerO,
		EmptyCell, PlayerO, PlayerX,
		PlayerO, EmptyCell, EmptyCell,
	}

	// When: evaluating the board
	outcome := EvaluateWinner(board)

	// Then: O wins along the anti-diagonal
	assert.Equal(t, PlayerO, outcome.Winner)
	assert.Equal(t, [3]int{2, 4, 6}, outcome.Line)
}

func TestBoard_Place(t *testing.T) {
	// Given: an empty board
	var board Board

	// When: placing a mark
	next := board.Place(4, PlayerX)

	// Then: the new board holds the mark and the original is untouched
	assert.Equal(t, PlayerX, next[4])
	assert.Equal(t, EmptyCell, board[4])
}

func TestCoordinateOf(t *testing.T) {
	t.Run("Cell 5 is column 2, row 1", func(t *testing.T) {
		coordinate := CoordinateOf(5)

		assert.Equal(t, Coordinate{Col: 2, Row: 1}, coordinate)
		assert.Equal(t, "(2,1)", coordinate.String())
	})

	t.Run("Bottom right cell", func(t *testing.T) {
		assert.Equal(t, Coordinate{Col: 2, Row: 2}, CoordinateOf(8))
	})
}

func TestMove_Coordinate(t *testing.T) {
	t.Run("Initial board has no coordinate", func(t *testing.T) {
		_, ok := StartMove().Coordinate()

		assert.False(t, ok)
	})

	t.Run("Played move reports its cell position", func(t *testing.T) {
		move := Move{Cell: 7}

		coordinate, ok := move.Coordinate()

		require.True(t, ok)
		assert.Equal(t, Coordinate{Col: 1, Row: 2}, coordinate)
	})
}

