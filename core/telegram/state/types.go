// Package state keeps the pending conversation step of each user.
package state

import "context"

// State identifies a conversation step awaiting the user's next message.
type State string

const (
	// StateIdle indicates there is no pending conversation step.
	StateIdle State = "idle"
)

// Store maps user ids to their pending state. A user never seen is Idle.
type Store interface {
	Get(ctx context.Context, userID int64) (State, error)
	Set(ctx context.Context, userID int64, st State) error
	Clear(ctx context.Context, userID int64) error
}
