package entity

type Result int

const (
	ResultNone Result = iota
	ResultDraw
	ResultWinner
)

func (that Result) String() string {
	switch that {
	case ResultDraw:
		return "draw"
	case ResultWinner:
		return "winner"
	default:
		return "none"
	}
}

// Outcome is the evaluation of a single board. Line is only meaningful when Result is ResultWinner.
type Outcome struct {
	Result Result
	Winner Mark
	Line   [3]int
}

func (that Outcome) HasWinner() bool {
	return that.Result == ResultWinner
}

func (that Outcome) IsFinished() bool {
	return that.Result != ResultNone
}

// EvaluateWinner returns the first completed line in WinCombos order,
// a draw for a full board without one, and ResultNone otherwise.
func EvaluateWinner(board Board) Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return Outcome{
				Result: ResultWinner,
				Winner: a,
				Line:   combo,
			}
		}
	}

	// the game will continue until all the squares are full
	if !board.IsFull() {
		return Outcome{Result: ResultNone}
	}

	return Outcome{Result: ResultDraw}
}
