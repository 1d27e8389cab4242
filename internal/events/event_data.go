package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// TradeExecutedData contains data for TradeExecuted events.
// Amounts are decimal strings so no precision is lost on the way to clients.
type TradeExecutedData struct {
	TransactionID string `json:"transaction_id"`
	Username      string `json:"username"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Quantity      int64  `json:"quantity"`
	Price         string `json:"price"`
	Total         string `json:"total"`
	Balance       string `json:"balance"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// UserSignedUpData contains data for UserSignedUp events
type UserSignedUpData struct {
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

// EventType returns the event type for UserSignedUpData
func (d *UserSignedUpData) EventType() EventType {
	return UserSignedUp
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
