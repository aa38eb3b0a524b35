package log

// Canonical field names for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"

	// Bus fields
	FieldEventType      = "event_type"
	FieldProducer       = "producer"
	FieldSubscriptionID = "subscription_id"
	FieldPriority       = "priority"
	FieldPayloadType    = "payload_type"

	// Playlist fields
	FieldPlaylist    = "playlist"
	FieldRunID       = "run_id"
	FieldReason      = "reason"
	FieldRepeatIndex = "repeat_index"
	FieldOldState    = "old_state"
	FieldNewState    = "new_state"

	// Peripheral fields
	FieldPeripheral   = "peripheral"
	FieldPeripheralID = "peripheral_id"
	FieldResource     = "resource"
)
