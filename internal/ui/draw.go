package ui

import (
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/entity"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

// Screen layout. The board grid starts at (boardX, boardY), each cell is
// three columns wide and separated by one border column and one border row.
const (
	boardX = 2
	boardY = 1

	cellWidth  = 4
	cellHeight = 2
	gridWidth  = entity.BoardSide*cellWidth + 1

	infoX    = boardX + gridWidth + 4
	statusY  = boardY
	orderY   = boardY + 1
	movesY   = boardY + 3
	helpY    = movesY + entity.BoardSize + 2
	helpText = "1-9 place  up/down select  enter jump  o order  n new  q quit"

	cursorMark = "> "
)

var (
	styleDefault  = tcell.StyleDefault
	styleWinning  = tcell.StyleDefault.Reverse(true).Bold(true)
	styleSelected = tcell.StyleDefault.Bold(true)
	styleHelp     = tcell.StyleDefault.Dim(true)
)

// Draw renders the current view of the engine.
func (that *App) Draw() {
	view := that.engine.View()

	that.screen.Clear()

	that.drawBoard(view)
	that.drawText(infoX, statusY, styleDefault, view.Status)
	that.drawText(infoX, orderY, styleDefault, "["+view.OrderLabel+"]")
	that.drawMoves(view.Moves)
	that.drawText(boardX, helpY, styleHelp, helpText)

	that.screen.Show()
}

func (that *App) drawBoard(view tictactoe.View) {
	border := ""
	for range entity.BoardSide {
		border += "+---"
	}
	border += "+"

	for row := range entity.BoardSide {
		that.drawText(boardX, boardY+row*cellHeight, styleDefault, border)

		y := boardY + row*cellHeight + 1
		for col := range entity.BoardSide {
			x := boardX + col*cellWidth
			cell := row*entity.BoardSide + col

			that.drawText(x, y, styleDefault, "|")

			style := styleDefault
			if view.IsWinningCell(cell) {
				style = styleWinning
			}

			mark := view.Board[cell]
			if mark == "" {
				mark = " "
			}
			that.drawText(x+1, y, style, " "+mark+" ")
		}
		that.drawText(boardX+gridWidth-1, y, styleDefault, "|")
	}

	that.drawText(boardX, boardY+entity.BoardSide*cellHeight, styleDefault, border)
}

func (that *App) drawMoves(moves []tictactoe.MoveEntry) {
	for i, entry := range moves {
		prefix := "  "
		if entry.Step == that.highlight {
			prefix = cursorMark
		}

		style := styleDefault
		if entry.Selected {
			style = styleSelected
		}

		that.drawText(infoX, movesY+i, style, prefix+entry.Label)
	}
}

func (that *App) drawText(x, y int, style tcell.Style, text string) {
	for _, r := range text {
		that.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// cellAt maps a screen position inside the grid to a board cell.
func cellAt(x, y int) (int, bool) {
	dx, dy := x-boardX, y-boardY
	if dx < 0 || dy < 0 || dx >= gridWidth-1 || dy >= entity.BoardSide*cellHeight {
		return entity.NoCell, false
	}

	// borders
	if dx%cellWidth == 0 || dy%cellHeight == 0 {
		return entity.NoCell, false
	}

	return (dy/cellHeight)*entity.BoardSide + dx/cellWidth, true
}

func isOrderToggle(x, y int) bool {
	return y == orderY && x >= infoX && x < infoX+utf8.RuneCountInString("[desc ▼]")
}

// moveRowAt maps a screen position to a row of the move list in display order.
func moveRowAt(x, y int) (int, bool) {
	if x < infoX || y < movesY {
		return 0, false
	}

	return y - movesY, true
}
