// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	TradeExecuted   EventType = "TRADE_EXECUTED"
	UserSignedUp    EventType = "USER_SIGNED_UP"
	BackupCompleted EventType = "BACKUP_COMPLETED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// Event represents a system event with typed data
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}
