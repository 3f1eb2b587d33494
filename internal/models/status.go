package models

// DeliveryStatus represents the lifecycle state of a delivery
type DeliveryStatus string

// Delivery lifecycle states
const (
	StatusPending        DeliveryStatus = "pending"
	StatusPickedUp       DeliveryStatus = "picked_up"
	StatusInTransit      DeliveryStatus = "in_transit"
	StatusOutForDelivery DeliveryStatus = "out_for_delivery"
	StatusDelivered      DeliveryStatus = "delivered"
	StatusCancelled      DeliveryStatus = "cancelled"
)

// transitions is the enforced transition table. A delivery moves forward
// through the progression and can be cancelled from any non-terminal
// state. Terminal states accept no further transitions.
var transitions = map[DeliveryStatus][]DeliveryStatus{
	StatusPending:        {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusInTransit, StatusCancelled},
	StatusInTransit:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

var statusLabels = map[DeliveryStatus]string{
	StatusPending:        "Pending",
	StatusPickedUp:       "Picked Up",
	StatusInTransit:      "In Transit",
	StatusOutForDelivery: "Out for Delivery",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

// IsValid reports whether the status is a known delivery status
func (s DeliveryStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether the status accepts no further transitions
func (s DeliveryStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether moving from s to next is a legal transition
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s
func (s DeliveryStatus) NextStatuses() []DeliveryStatus {
	allowed := transitions[s]
	out := make([]DeliveryStatus, len(allowed))
	copy(out, allowed)
	return out
}

// Label returns the human-facing label for the status
func (s DeliveryStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}
