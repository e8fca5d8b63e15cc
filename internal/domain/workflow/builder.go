package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{transitions: make(map[Trigger][]transition)}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state.
// Machines built from the same builder do not share transition tables.
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	configs := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitions := make(map[Trigger][]transition, len(config.transitions))
		for trigger, ts := range config.transitions {
			transitions[trigger] = append([]transition{}, ts...)
		}
		configs[state] = &stateConfig{transitions: transitions}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configs,
	}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire reports whether the trigger has a transition from the current
// state whose guard passes
func (m *stateMachine) CanFire(ctx context.Context, trigger Trigger) bool {
	_, ok := m.pick(ctx, trigger)
	return ok
}

// Fire executes the first transition whose guard passes
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s (no configuration)", ErrInvalidTransition, trigger, m.currentState)
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	next, ok := m.pick(ctx, trigger)
	if !ok {
		return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
	}
	m.currentState = next
	return nil
}

// pick returns the target of the first transition whose guard passes
func (m *stateMachine) pick(ctx context.Context, trigger Trigger) (State, bool) {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return "", false
	}
	for _, t := range config.transitions[trigger] {
		if t.guard == nil || t.guard(ctx) {
			return t.toState, true
		}
	}
	return "", false
}
