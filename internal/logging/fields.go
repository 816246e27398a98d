package logging

// Standardized structured log field names.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldKind      = "kind"
	FieldItemID    = "item_id"
	FieldDrainID   = "drain_id"
	FieldSyncTag   = "sync_tag"
)
