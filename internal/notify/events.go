package notify

// Event types emitted by the trading services. The notify.events config list
// selects which of these reach the configured channels.
const (
	EventOrderPlaced    = "order_placed"
	EventOrderCancelled = "order_cancelled"
	EventPositionOpened = "position_opened"
	EventPositionClosed = "position_closed"
	EventEmergencyStop  = "emergency_stop"
	EventError          = "error"
)
