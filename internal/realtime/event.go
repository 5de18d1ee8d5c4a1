// Package realtime defines the push event taxonomy and the broadcast side of
// the order synchronization stream. Payload shapes are explicit tagged
// variants decoded at the transport boundary; nothing downstream trusts raw
// JSON.
package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

// Room is a server-side broadcast scope clients join to receive a filtered
// subset of push events.
type Room string

const (
	RoomKitchen Room = "kitchen"
	RoomOrders  Room = "orders"
)

// KnownRoom reports whether the room is one of the two defined scopes.
func KnownRoom(r Room) bool {
	return r == RoomKitchen || r == RoomOrders
}

// Kind tags an event payload variant.
type Kind string

const (
	KindOrderCreated       Kind = "order:created"
	KindOrderUpdated       Kind = "order:updated"
	KindOrderDeleted       Kind = "order:deleted"
	KindOrderStatusChanged Kind = "order:status-changed"
	KindItemAdded          Kind = "order-item:added"
	KindItemUpdated        Kind = "order-item:updated"
	KindItemRemoved        Kind = "order-item:removed"
)

// Event is implemented by every payload variant.
type Event interface {
	EventKind() Kind
}

// OrderCreated announces a newly persisted order.
type OrderCreated struct {
	Order dto.Order `json:"order"`
}

// OrderUpdated carries a full replacement record for an existing order.
type OrderUpdated struct {
	Order         dto.Order `json:"order"`
	ChangedFields []string  `json:"changedFields,omitempty"`
}

// OrderDeleted announces removal of an order.
type OrderDeleted struct {
	OrderID int64 `json:"orderId"`
}

// OrderStatusChanged announces a confirmed server-side status transition.
type OrderStatusChanged struct {
	OrderID        int64         `json:"orderId"`
	PreviousStatus status.Status `json:"previousStatus"`
	NewStatus      status.Status `json:"newStatus"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ItemAdded announces a new line on an existing order.
type ItemAdded struct {
	OrderID int64         `json:"orderId"`
	Item    dto.OrderItem `json:"item"`
}

// ItemUpdated carries a replacement for an existing order line.
type ItemUpdated struct {
	OrderID int64         `json:"orderId"`
	Item    dto.OrderItem `json:"item"`
}

// ItemRemoved announces removal of an order line.
type ItemRemoved struct {
	OrderID int64 `json:"orderId"`
	ItemID  int64 `json:"itemId"`
}

func (OrderCreated) EventKind() Kind       { return KindOrderCreated }
func (OrderUpdated) EventKind() Kind       { return KindOrderUpdated }
func (OrderDeleted) EventKind() Kind       { return KindOrderDeleted }
func (OrderStatusChanged) EventKind() Kind { return KindOrderStatusChanged }
func (ItemAdded) EventKind() Kind          { return KindItemAdded }
func (ItemUpdated) EventKind() Kind        { return KindItemUpdated }
func (ItemRemoved) EventKind() Kind        { return KindItemRemoved }

// Envelope is the frame placed on the wire: a kind tag plus the raw payload.
type Envelope struct {
	Kind    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode frames an event for publication.
func Encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.EventKind(), err)
	}
	return json.Marshal(Envelope{Kind: event.EventKind(), Payload: payload})
}

// Decode parses a wire frame into its typed payload variant. Unknown kinds
// and malformed payloads are rejected here so handlers only ever see valid
// events.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("event %q has no payload", env.Kind)
	}

	var event Event
	switch env.Kind {
	case KindOrderCreated:
		event = &OrderCreated{}
	case KindOrderUpdated:
		event = &OrderUpdated{}
	case KindOrderDeleted:
		event = &OrderDeleted{}
	case KindOrderStatusChanged:
		event = &OrderStatusChanged{}
	case KindItemAdded:
		event = &ItemAdded{}
	case KindItemUpdated:
		event = &ItemUpdated{}
	case KindItemRemoved:
		event = &ItemRemoved{}
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}

	if err := json.Unmarshal(env.Payload, event); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", env.Kind, err)
	}
	return deref(event), nil
}

// deref returns the value form so handlers can type-switch on concrete
// structs instead of pointers.
func deref(event Event) Event {
	switch e := event.(type) {
	case *OrderCreated:
		return *e
	case *OrderUpdated:
		return *e
	case *OrderDeleted:
		return *e
	case *OrderStatusChanged:
		return *e
	case *ItemAdded:
		return *e
	case *ItemUpdated:
		return *e
	case *ItemRemoved:
		return *e
	}
	return event
}
