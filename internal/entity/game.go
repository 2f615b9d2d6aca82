package entity

import "fmt"

type Mark string

const (
	PlayerX Mark = "X"
	PlayerO Mark = "O"

	EmptyCell Mark = ""
)

const (
	BoardSize = 9
	BoardSide = 3

	// NoCell marks the history entry of the initial board, which has no filled cell.
	NoCell = -1
)

// WinCombos lists every line in the order it is checked:
// rows top to bottom, columns left to right, then both diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

func (that Mark) IsValid() bool {
	return that == EmptyCell || that == PlayerX || that == PlayerO
}

// Board is a 3x3 grid stored row by row. It is a value type: assigning it copies the cells.
type Board [BoardSize]Mark

// Place returns a copy of the board with the cell set to the mark.
func (that Board) Place(cell int, mark Mark) Board {
	next := that
	next[cell] = mark

	return next
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// Strings converts the board into the plain representation used by the presentation layers.
func (that Board) Strings() [BoardSize]string {
	var cells [BoardSize]string
	for i, cell := range that {
		cells[i] = string(cell)
	}

	return cells
}

func IsValidCell(cell int) bool {
	return cell >= 0 && cell < BoardSize
}

// Coordinate is the (col, row) position of a cell, both zero based.
type Coordinate struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

func CoordinateOf(cell int) Coordinate {
	return Coordinate{
		Col: cell % BoardSide,
		Row: cell / BoardSide,
	}
}

func (that Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", that.Col, that.Row)
}

// Move is a history entry: the board after a play and the cell that play filled.
type Move struct {
	Board Board
	Cell  int
}

func StartMove() Move {
	return Move{Cell: NoCell}
}

// Coordinate returns the position of the filled cell, false for the initial board.
func (that Move) Coordinate() (Coordinate, bool) {
	if !IsValidCell(that.Cell) {
		return Coordinate{}, false
	}

	return CoordinateOf(that.Cell), true
}
