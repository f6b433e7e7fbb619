// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"errors"
	"sync"
	"time"

	"github.com/logstore/lambda-extension/lambda/core/statejson"
)

// ErrNotAllowed returned on illegal state transition
var ErrNotAllowed = errors.New("State transition is not allowed")

// ExtensionState is extension state machine interface.
type ExtensionState interface {
	Register() error
	Subscribe() error
	Invoke() error
	Shutdown() error
	Terminate() error
	Name() string
}

// StateReader gives read-only access to the extension state. The receiver
// and delivery client hold one of these, only the lifecycle driver
// holds the *Extension itself.
type StateReader interface {
	GetState() ExtensionState
	AcceptsLogs() bool
}

type disallowEveryTransitionByDefault struct{}

func (s *disallowEveryTransitionByDefault) Register() error  { return ErrNotAllowed }
func (s *disallowEveryTransitionByDefault) Subscribe() error { return ErrNotAllowed }
func (s *disallowEveryTransitionByDefault) Invoke() error    { return ErrNotAllowed }
func (s *disallowEveryTransitionByDefault) Shutdown() error  { return ErrNotAllowed }
func (s *disallowEveryTransitionByDefault) Terminate() error { return ErrNotAllowed }

// Extension is the process-wide extension object.
type Extension struct {
	Name string

	mu                sync.RWMutex
	id                string
	currentState      ExtensionState
	stateLastModified time.Time
	invocations       int

	UnregisteredState ExtensionState
	RegisteredState   ExtensionState
	SubscribedState   ExtensionState
	PollingState      ExtensionState
	DrainingState     ExtensionState
	TerminatedState   ExtensionState
}

// NewExtension returns a named extension in the Unregistered state.
func NewExtension(name string) *Extension {
	ext := &Extension{Name: name}

	ext.UnregisteredState = &ExtensionUnregisteredState{ext: ext}
	ext.RegisteredState = &ExtensionRegisteredState{ext: ext}
	ext.SubscribedState = &ExtensionSubscribedState{ext: ext}
	ext.PollingState = &ExtensionPollingState{ext: ext}
	ext.DrainingState = &ExtensionDrainingState{ext: ext}
	ext.TerminatedState = &ExtensionTerminatedState{}

	ext.setStateUnsafe(ext.UnregisteredState)
	return ext
}

func (s *Extension) setState(state ExtensionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateUnsafe(state)
}

func (s *Extension) setStateUnsafe(state ExtensionState) {
	s.currentState = state
	s.stateLastModified = time.Now()
}

// GetState ...
func (s *Extension) GetState() ExtensionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentState
}

// AcceptsLogs reports whether pushed batches may still be enqueued.
func (s *Extension) AcceptsLogs() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentState != s.DrainingState && s.currentState != s.TerminatedState
}

// ID returns the identifier assigned by the platform on registration.
func (s *Extension) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Invocations returns the number of INVOKE events observed.
func (s *Extension) Invocations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invocations
}

// Register records the platform identifier and delegates to state implementation.
func (s *Extension) Register(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.currentState.Register(); err != nil {
		return err
	}
	s.id = id
	return nil
}

// Subscribe delegates to state implementation.
func (s *Extension) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentState.Subscribe()
}

// Invoke delegates to state implementation.
func (s *Extension) Invoke() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentState.Invoke()
}

// Shutdown delegates to state implementation.
func (s *Extension) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentState.Shutdown()
}

// Terminate delegates to state implementation.
func (s *Extension) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentState.Terminate()
}

// GetExtensionDescription returns extension description object for debugging purposes
func (s *Extension) GetExtensionDescription() statejson.ExtensionDescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statejson.ExtensionDescription{
		Name: s.Name,
		ID:   s.id,
		State: statejson.StateDescription{
			Name:         s.currentState.Name(),
			LastModified: s.stateLastModified.UnixNano() / int64(time.Millisecond),
		},
		Invocations: s.invocations,
	}
}

// ExtensionUnregisteredState is the initial state of the extension
type ExtensionUnregisteredState struct {
	disallowEveryTransitionByDefault
	ext *Extension
}

// Register ...
func (s *ExtensionUnregisteredState) Register() error {
	s.ext.setStateUnsafe(s.ext.RegisteredState)
	return nil
}

// Name return state's human friendly name
func (s *ExtensionUnregisteredState) Name() string {
	return ExtensionUnregisteredStateName
}

// ExtensionRegisteredState is the state of an extension that holds an
// identifier but has no log subscription yet
type ExtensionRegisteredState struct {
	disallowEveryTransitionByDefault
	ext *Extension
}

// Subscribe ...
func (s *ExtensionRegisteredState) Subscribe() error {
	s.ext.setStateUnsafe(s.ext.SubscribedState)
	return nil
}

// Name return state's human friendly name
func (s *ExtensionRegisteredState) Name() string {
	return ExtensionRegisteredStateName
}

// ExtensionSubscribedState is the state of a subscribed extension that has
// not yet received its first event
type ExtensionSubscribedState struct {
	disallowEveryTransitionByDefault
	ext *Extension
}

// Invoke ...
func (s *ExtensionSubscribedState) Invoke() error {
	s.ext.invocations++
	s.ext.setStateUnsafe(s.ext.PollingState)
	return nil
}

// Shutdown - the environment can be shut down before any invoke was delivered
func (s *ExtensionSubscribedState) Shutdown() error {
	s.ext.setStateUnsafe(s.ext.DrainingState)
	return nil
}

// Name return state's human friendly name
func (s *ExtensionSubscribedState) Name() string {
	return ExtensionSubscribedStateName
}

// ExtensionPollingState is the state of an extension looping on next
type ExtensionPollingState struct {
	disallowEveryTransitionByDefault
	ext *Extension
}

// Invoke ...
func (s *ExtensionPollingState) Invoke() error {
	s.ext.invocations++
	s.ext.setStateUnsafe(s.ext.PollingState)
	return nil
}

// Shutdown ...
func (s *ExtensionPollingState) Shutdown() error {
	s.ext.setStateUnsafe(s.ext.DrainingState)
	return nil
}

// Name return state's human friendly name
func (s *ExtensionPollingState) Name() string {
	return ExtensionPollingStateName
}

// ExtensionDrainingState is the state of an extension flushing buffered
// batches before the shutdown deadline
type ExtensionDrainingState struct {
	disallowEveryTransitionByDefault
	ext *Extension
}

// Terminate ...
func (s *ExtensionDrainingState) Terminate() error {
	s.ext.setStateUnsafe(s.ext.TerminatedState)
	return nil
}

// Name return state's human friendly name
func (s *ExtensionDrainingState) Name() string {
	return ExtensionDrainingStateName
}

// ExtensionTerminatedState is the terminal state
type ExtensionTerminatedState struct {
	disallowEveryTransitionByDefault
}

// Name return state's human friendly name
func (s *ExtensionTerminatedState) Name() string {
	return ExtensionTerminatedStateName
}
