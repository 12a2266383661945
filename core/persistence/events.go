package persistence

import (
	"context"

	"github.com/asaidimu/go-hobbies/core/schema"
)

// PersistenceEventType defines the possible event types for persistence operations.
type PersistenceEventType string

const (
	HobbyTypeCreateStart    PersistenceEventType = "hobby_type:create:start"
	HobbyTypeCreateSuccess  PersistenceEventType = "hobby_type:create:success"
	HobbyTypeCreateFailed   PersistenceEventType = "hobby_type:create:failed"
	HobbyTypeUpdateStart    PersistenceEventType = "hobby_type:update:start"
	HobbyTypeUpdateSuccess  PersistenceEventType = "hobby_type:update:success"
	HobbyTypeUpdateFailed   PersistenceEventType = "hobby_type:update:failed"
	HobbyTypeDeleteStart    PersistenceEventType = "hobby_type:delete:start"
	HobbyTypeDeleteSuccess  PersistenceEventType = "hobby_type:delete:success"
	HobbyTypeDeleteFailed   PersistenceEventType = "hobby_type:delete:failed"
	FieldCreateStart        PersistenceEventType = "field:create:start"
	FieldCreateSuccess      PersistenceEventType = "field:create:success"
	FieldCreateFailed       PersistenceEventType = "field:create:failed"
	FieldUpdateStart        PersistenceEventType = "field:update:start"
	FieldUpdateSuccess      PersistenceEventType = "field:update:success"
	FieldUpdateFailed       PersistenceEventType = "field:update:failed"
	FieldDeleteStart        PersistenceEventType = "field:delete:start"
	FieldDeleteSuccess      PersistenceEventType = "field:delete:success"
	FieldDeleteFailed       PersistenceEventType = "field:delete:failed"
	SchemaImportStart       PersistenceEventType = "schema:import:start"
	SchemaImportSuccess     PersistenceEventType = "schema:import:success"
	SchemaImportFailed      PersistenceEventType = "schema:import:failed"
	EntryCreateStart        PersistenceEventType = "entry:create:start"
	EntryCreateSuccess      PersistenceEventType = "entry:create:success"
	EntryCreateFailed       PersistenceEventType = "entry:create:failed"
	EntryUpdateStart        PersistenceEventType = "entry:update:start"
	EntryUpdateSuccess      PersistenceEventType = "entry:update:success"
	EntryUpdateFailed       PersistenceEventType = "entry:update:failed"
	EntryDeleteStart        PersistenceEventType = "entry:delete:start"
	EntryDeleteSuccess      PersistenceEventType = "entry:delete:success"
	EntryDeleteFailed       PersistenceEventType = "entry:delete:failed"
	EntryValidationRejected PersistenceEventType = "entry:validate:rejected"
	TagCreateStart          PersistenceEventType = "tag:create:start"
	TagCreateSuccess        PersistenceEventType = "tag:create:success"
	TagCreateFailed         PersistenceEventType = "tag:create:failed"
	TagDeleteStart          PersistenceEventType = "tag:delete:start"
	TagDeleteSuccess        PersistenceEventType = "tag:delete:success"
	TagDeleteFailed         PersistenceEventType = "tag:delete:failed"
	ViewCreateStart         PersistenceEventType = "view:create:start"
	ViewCreateSuccess       PersistenceEventType = "view:create:success"
	ViewCreateFailed        PersistenceEventType = "view:create:failed"
	ViewDeleteStart         PersistenceEventType = "view:delete:start"
	ViewDeleteSuccess       PersistenceEventType = "view:delete:success"
	ViewDeleteFailed        PersistenceEventType = "view:delete:failed"
	AuditStart              PersistenceEventType = "audit:start"
	AuditSuccess            PersistenceEventType = "audit:success"
	AuditFailed             PersistenceEventType = "audit:failed"
	SubscriptionRegister    PersistenceEventType = "subscription:register"
	SubscriptionUnregister  PersistenceEventType = "subscription:unregister"
)

// PersistenceEvent represents events emitted during persistence operations.
type PersistenceEvent struct {
	Type      PersistenceEventType `json:"type"`                // The type of event (e.g., 'entry:create:start').
	Timestamp int64                `json:"timestamp"`           // Timestamp when the event occurred (Unix milliseconds).
	Operation string               `json:"operation"`           // The operation being performed (e.g., 'create_entry').
	Owner     string               `json:"owner,omitempty"`     // The acting owner.
	HobbyType *string              `json:"hobbyType,omitempty"` // Hobby type affected (if applicable).
	Input     any                  `json:"input,omitempty"`     // Data passed to the operation (if applicable).
	Output    any                  `json:"output,omitempty"`    // Data returned by the operation (if applicable).
	Error     *string              `json:"error,omitempty"`     // Error message if the operation failed.
	Issues    []schema.Issue       `json:"issues,omitempty"`    // Issues that caused the operation to fail.
	Duration  *int64               `json:"duration,omitempty"`  // Duration of the operation in milliseconds.
}

// EventCallbackFunction receives persistence events.
type EventCallbackFunction func(ctx context.Context, event PersistenceEvent) error

// RegisterSubscriptionOptions describes a subscription to register.
type RegisterSubscriptionOptions struct {
	Event       PersistenceEventType
	Label       *string
	Description *string
	Callback    EventCallbackFunction
}

// SubscriptionInfo describes an active subscription.
type SubscriptionInfo struct {
	Id          *string              `json:"id,omitempty"`
	Event       PersistenceEventType `json:"event"`                 // The event subscribed to.
	Label       *string              `json:"label,omitempty"`       // Optional short identifier.
	Description *string              `json:"description,omitempty"` // Optional human readable description.
	Unsubscribe func()               `json:"-"`
}

// operation groups the events emitted around one service call.
type operation struct {
	name    string
	start   PersistenceEventType
	success PersistenceEventType
	failed  PersistenceEventType
}

var (
	opCreateHobbyType = operation{"create_hobby_type", HobbyTypeCreateStart, HobbyTypeCreateSuccess, HobbyTypeCreateFailed}
	opUpdateHobbyType = operation{"update_hobby_type", HobbyTypeUpdateStart, HobbyTypeUpdateSuccess, HobbyTypeUpdateFailed}
	opDeleteHobbyType = operation{"delete_hobby_type", HobbyTypeDeleteStart, HobbyTypeDeleteSuccess, HobbyTypeDeleteFailed}
	opCreateField     = operation{"create_field", FieldCreateStart, FieldCreateSuccess, FieldCreateFailed}
	opUpdateField     = operation{"update_field", FieldUpdateStart, FieldUpdateSuccess, FieldUpdateFailed}
	opDeleteField     = operation{"delete_field", FieldDeleteStart, FieldDeleteSuccess, FieldDeleteFailed}
	opImportSchema    = operation{"import_schema", SchemaImportStart, SchemaImportSuccess, SchemaImportFailed}
	opCreateEntry     = operation{"create_entry", EntryCreateStart, EntryCreateSuccess, EntryCreateFailed}
	opUpdateEntry     = operation{"update_entry", EntryUpdateStart, EntryUpdateSuccess, EntryUpdateFailed}
	opDeleteEntry     = operation{"delete_entry", EntryDeleteStart, EntryDeleteSuccess, EntryDeleteFailed}
	opCreateTag       = operation{"create_tag", TagCreateStart, TagCreateSuccess, TagCreateFailed}
	opDeleteTag       = operation{"delete_tag", TagDeleteStart, TagDeleteSuccess, TagDeleteFailed}
	opCreateView      = operation{"create_view", ViewCreateStart, ViewCreateSuccess, ViewCreateFailed}
	opDeleteView      = operation{"delete_view", ViewDeleteStart, ViewDeleteSuccess, ViewDeleteFailed}
	opAudit           = operation{"audit", AuditStart, AuditSuccess, AuditFailed}
)
