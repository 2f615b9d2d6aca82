package ui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

// App draws one engine on a terminal screen and feeds it keyboard and mouse commands.
type App struct {
	logger *slog.Logger
	screen tcell.Screen
	engine *tictactoe.Engine

	// highlight is the step under the move list cursor.
	highlight int

	// buttonDown is true while the primary button is held.
	buttonDown bool
}

// NewTerminal creates the tcell screen for the current terminal.
func NewTerminal() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}

	return screen, nil
}

func New(logger *slog.Logger, screen tcell.Screen, engine *tictactoe.Engine) *App {
	return &App{
		logger: logger.With("component", "ui"),
		screen: screen,
		engine: engine,
	}
}

func (that *App) Engine() *tictactoe.Engine {
	return that.engine
}

// Run initializes the screen and processes events until the user quits or ctx is done.
func (that *App) Run(ctx context.Context) error {
	if err := that.screen.Init(); err != nil {
		return fmt.Errorf("failed to init screen: %w", err)
	}
	defer that.screen.Fini()

	that.screen.EnableMouse(tcell.MouseButtonEvents)

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = that.screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-done:
		}
	}()

	that.logger.Info("terminal UI started")
	that.Draw()

	for {
		ev := that.screen.PollEvent()
		if ev == nil {
			return nil
		}

		if _, ok := ev.(*tcell.EventInterrupt); ok && ctx.Err() != nil {
			that.logger.Info("terminal UI interrupted")
			return nil
		}

		if quit := that.HandleEvent(ev); quit {
			that.logger.Info("terminal UI closed by user")
			return nil
		}

		that.Draw()
	}
}

// HandleEvent applies the command bound to the event and reports whether the user asked to quit.
func (that *App) HandleEvent(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return that.handleKey(e)
	case *tcell.EventMouse:
		that.handleMouse(e)
	case *tcell.EventResize:
		that.screen.Sync()
	}

	return false
}

func (that *App) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		that.moveHighlight(-1)
	case tcell.KeyDown:
		that.moveHighlight(1)
	case tcell.KeyEnter:
		that.jumpTo(that.highlight)
	case tcell.KeyRune:
		if ev.Modifiers()&tcell.ModCtrl != 0 && ev.Rune() == 'c' {
			return true
		}

		return that.handleRune(ev.Rune())
	}

	return false
}

func (that *App) handleRune(r rune) bool {
	switch {
	case r >= '1' && r <= '9':
		that.placeMark(int(r - '1'))
	case r == 'o':
		that.engine.ToggleListOrder()
	case r == 'n':
		that.engine = tictactoe.NewEngine(tictactoe.WithLogger(that.logger))
		that.highlight = 0
	case r == 'q':
		return true
	}

	return false
}

// handleMouse clicks only when the primary button goes down. Events reported
// while it stays held are part of the same press.
func (that *App) handleMouse(ev *tcell.EventMouse) {
	pressed := ev.Buttons()&tcell.Button1 != 0
	if pressed && !that.buttonDown {
		x, y := ev.Position()
		that.handleClick(x, y)
	}

	that.buttonDown = pressed
}

func (that *App) handleClick(x, y int) {
	if cell, ok := cellAt(x, y); ok {
		that.placeMark(cell)
		return
	}

	if isOrderToggle(x, y) {
		that.engine.ToggleListOrder()
		return
	}

	if row, ok := moveRowAt(x, y); ok {
		moves := that.engine.MoveEntries()
		if row < len(moves) {
			that.jumpTo(moves[row].Step)
		}
	}
}

func (that *App) placeMark(cell int) {
	that.engine.PlaceMark(cell)
	that.highlight = that.engine.StepNumber()
}

func (that *App) jumpTo(step int) {
	if !that.engine.CanJumpTo(step) {
		return
	}

	that.engine.JumpTo(step)
	that.highlight = step
}

// moveHighlight moves the list cursor up or down in display order.
func (that *App) moveHighlight(delta int) {
	moves := that.engine.MoveEntries()

	idx := 0
	for i, entry := range moves {
		if entry.Step == that.highlight {
			idx = i
			break
		}
	}

	idx = min(max(idx+delta, 0), len(moves)-1)
	that.highlight = moves[idx].Step
}
