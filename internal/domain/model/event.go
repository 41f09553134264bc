package model

import "time"

// EventType names a trigger fire or lifecycle transition.
type EventType string

const (
	EventTriggerFired   EventType = "trigger_fired"
	EventSignalCreated  EventType = "signal_created"
	EventSignalWatching EventType = "signal_watching"
	EventBetTaken       EventType = "bet_taken"
	EventSignalExpired  EventType = "signal_expired"
	EventSignalSettled  EventType = "signal_settled"
	EventSignalClosed   EventType = "signal_closed"
)

// ConditionResult records how one condition evaluated.
type ConditionResult struct {
	Condition Condition `json:"condition"`
	Actual    Value     `json:"actual"`
	Passed    bool      `json:"passed"`
}

// Event is the fully resolved record handed to persistence and notification
// sinks. Signal and Game are copies owned by the receiver.
type Event struct {
	ID           string            `json:"id"`
	Type         EventType         `json:"type"`
	StrategyID   string            `json:"strategyId"`
	StrategyName string            `json:"strategyName"`
	GameID       string            `json:"gameId"`
	Trigger      *Trigger          `json:"trigger,omitempty"`
	Signal       *Signal           `json:"signal,omitempty"`
	Game         *GameSnapshot     `json:"game,omitempty"`
	Matched      []ConditionResult `json:"matched,omitempty"`
	Failed       []ConditionResult `json:"failed,omitempty"`
	Result       Result            `json:"result,omitempty"`
	At           time.Time         `json:"at"`
}
