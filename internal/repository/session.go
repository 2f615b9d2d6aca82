package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-timetravel/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-timetravel/internal/tictactoe"
)

const (
	sessionKeyPrefix  = "session:"
	maxUpdateAttempts = 10
)

// SessionRepository keeps the engine state of each browser session until the session expires.
type SessionRepository interface {
	Save(ctx context.Context, sessionID string, state *tictactoe.State) error
	GetByID(ctx context.Context, sessionID string) (*tictactoe.State, error)
	Update(ctx context.Context, sessionID string, fn func(state *tictactoe.State) (*tictactoe.State, error)) error
}

type stateGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type dbSession struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) SessionRepository {
	return &dbSession{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbSession) Save(ctx context.Context, sessionID string, state *tictactoe.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not marshal session state: %w", err)
	}

	if err = that.client.Set(ctx, sessionKeyPrefix+sessionID, stateJSON, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (that *dbSession) GetByID(ctx context.Context, sessionID string) (*tictactoe.State, error) {
	return getState(ctx, that.client, sessionKeyPrefix+sessionID)
}

// Update applies fn to the stored state under WATCH and saves the result. fn gets nil
// for an unknown session. When another client writes the session in between, the
// transaction fails and fn runs again on the fresh state.
func (that *dbSession) Update(ctx context.Context, sessionID string, fn func(state *tictactoe.State) (*tictactoe.State, error)) error {
	key := sessionKeyPrefix + sessionID

	txf := func(tx *redis.Tx) error {
		state, err := getState(ctx, tx, key)
		if err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
			return err
		}

		next, err := fn(state)
		if err != nil {
			return err
		}

		stateJSON, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("could not marshal session state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, stateJSON, that.ttl)
			return nil
		})

		return err
	}

	for range maxUpdateAttempts {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}

		return nil
	}

	return apperror.ErrSessionConflict
}

func getState(ctx context.Context, getter stateGetter, key string) (*tictactoe.State, error) {
	response, err := getter.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrSessionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	var state tictactoe.State
	if err = json.Unmarshal([]byte(response), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}

	return &state, nil
}
