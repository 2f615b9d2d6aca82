package websocket

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

const (
	sessionCookieName = "user_session"
	shutdownTimeout   = 5 * time.Second
)

type gameUseCase interface {
	GetOrCreateGame(ctx context.Context, sessionID string) (*tictactoe.View, error)
	NewGame(ctx context.Context, sessionID string) (*tictactoe.View, error)

	PlaceMark(ctx context.Context, sessionID string, cell int) (*tictactoe.View, error)
	JumpTo(ctx context.Context, sessionID string, step int) (*tictactoe.View, error)
	ToggleListOrder(ctx context.Context, sessionID string) (*tictactoe.View, error)
}

type handlerFunc func(ctx context.Context, conn *connection, payload *Payload) (*tictactoe.View, error)

// connection is one upgraded client. Its messages are handled one at a time, in order.
type connection struct {
	sessionID string
	bufrw     *bufio.ReadWriter
}

type Server struct {
	logger      *slog.Logger
	gameUseCase gameUseCase
	sessionTTL  time.Duration

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, gameUseCase gameUseCase, sessionTTL time.Duration) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		gameUseCase: gameUseCase,
		sessionTTL:  sessionTTL,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionNewGame] = server.handleNewGame
	server.handlers[actionTurn] = server.handleTurn
	server.handlers[actionJump] = server.handleJump
	server.handlers[actionOrder] = server.handleOrder

	return server
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Handler(ctx),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection to WebSocket.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeConnection")

	if !strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
		http.Error(writer, "not a websocket upgrade", http.StatusBadRequest)
		return
	}

	key := req.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		http.Error(writer, "missing Sec-WebSocket-Key", http.StatusBadRequest)
		return
	}

	sessionID, err := that.setSessionCookie(writer, req)
	if err != nil {
		log.Error("failed to create session", "error", err)
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	hijacker, ok := writer.(http.Hijacker)
	if !ok {
		log.Error("web server does not support hijacking")
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Upgrade", "websocket")
	writer.Header().Set("Connection", "Upgrade")
	writer.Header().Set("Sec-WebSocket-Accept", pkg.GenerateAcceptKey(key))
	writer.WriteHeader(http.StatusSwitchingProtocols)

	conn, bufrw, err := hijacker.Hijack()
	if err != nil {
		log.Error("failed to hijack connection", "error", err)
		return
	}

	defer conn.Close()

	// the server timeouts must not apply to a long lived socket
	if err = conn.SetDeadline(time.Time{}); err != nil {
		log.Error("failed to clear connection deadline", "error", err)
		return
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	log = log.With("sessionID", sessionID)
	log.Info("WebSocket connection established")

	err = that.handleMessages(ctx, &connection{sessionID: sessionID, bufrw: bufrw})
	if err != nil && !errors.Is(err, ErrConnectionClosed) && ctx.Err() == nil {
		log.Error("error handling messages", "error", err)
		return
	}

	log.Info("WebSocket connection closed")
}

// handleMessages - processes messages from the client until it disconnects.
func (that *Server) handleMessages(ctx context.Context, conn *connection) error {
	log := that.logger.With("method", "handleMessages")

	for {
		reqBody, err := conn.readMessage()
		if err != nil {
			return err
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			if err = conn.sendMessage(actionError, Payload{Error: "malformed message"}); err != nil {
				return err
			}
			continue
		}

		if err = that.processMessage(ctx, conn, &message); err != nil {
			return err
		}
	}
}

// processMessage runs the handler for the message and answers with the new game view.
// Only failures to write the answer are returned.
func (that *Server) processMessage(ctx context.Context, conn *connection, message *Message) error {
	log := that.logger.With("method", "processMessage", "action", message.Action)

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action")
		return conn.sendMessage(message.Action, Payload{Error: "unknown action"})
	}

	var payload Payload
	if len(message.Payload) > 0 {
		if err := json.Unmarshal(message.Payload, &payload); err != nil {
			log.Error("failed to unmarshal payload", "error", err)
			return conn.sendMessage(message.Action, Payload{Error: "malformed payload"})
		}
	}

	view, err := handler(ctx, conn, &payload)
	if err != nil {
		log.Error("error processing message", "error", err)
		return conn.sendMessage(message.Action, Payload{SessionID: conn.sessionID, Error: errorMessage(err)})
	}

	return conn.sendMessage(message.Action, Payload{SessionID: conn.sessionID, Game: view})
}

// setSessionCookie - returns the session of the request, creating a new one when the cookie is missing.
func (that *Server) setSessionCookie(writer http.ResponseWriter, req *http.Request) (string, error) {
	log := that.logger.With("method", "setSessionCookie")

	cookie, err := req.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		log.Debug("session cookie found", "cookie", cookie.Value)
		return cookie.Value, nil
	}

	sessionID, err := pkg.GenerateNewSessionID()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Expires:  time.Now().Add(that.sessionTTL),
		Path:     "/ws",
		HttpOnly: true,
	})
	log.Info("session cookie not found, new one created", "cookie", sessionID)

	return sessionID, nil
}
