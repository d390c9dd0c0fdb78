package statemachine

import (
	"context"
	"sync"
)

// StateFn represents a state function following Rob Pike's pattern. It does
// the work of one state and returns the next one; nil ends the machine. A
// state that fails returns an error and the machine stays where it was, so
// the same state can be dispatched again.
type StateFn[T any] func(ctx context.Context, entity *T) (StateFn[T], error)

// StateMachine is a simple, thread-safe state machine wrapper following Rob Pike's pattern
// State functions are the states themselves, and each returns the next state function
type StateMachine[T any] struct {
	entity  *T
	stateFn StateFn[T]
	mutex   sync.RWMutex
}

// NewStateMachine creates a new state machine for the given entity
func NewStateMachine[T any](entity *T, initialStateFn StateFn[T]) *StateMachine[T] {
	return &StateMachine[T]{
		entity:  entity,
		stateFn: initialStateFn,
	}
}

// Dispatch runs the current state function once and transitions to the
// state it returns. On error the current state is kept.
func (sm *StateMachine[T]) Dispatch(ctx context.Context) error {
	sm.mutex.RLock()
	current := sm.stateFn
	sm.mutex.RUnlock()

	if current == nil {
		return nil
	}

	next, err := current(ctx, sm.entity)
	if err != nil {
		return err
	}

	sm.mutex.Lock()
	sm.stateFn = next
	sm.mutex.Unlock()
	return nil
}

// Done reports whether the machine reached its terminal state.
func (sm *StateMachine[T]) Done() bool {
	return sm.GetCurrentState() == nil
}

// GetCurrentState returns the current state function (thread-safe)
func (sm *StateMachine[T]) GetCurrentState() StateFn[T] {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.stateFn
}

// SetState sets the state function without running it
func (sm *StateMachine[T]) SetState(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()
}
