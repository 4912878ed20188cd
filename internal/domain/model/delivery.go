package model

import "github.com/google/uuid"

// DeliveryKind selects the surface a Delivery is rendered on.
type DeliveryKind int

const (
	// DeliveryActionBar is a live HUD reading.
	DeliveryActionBar DeliveryKind = iota
	// DeliveryChat is a one-off text message.
	DeliveryChat
)

func (k DeliveryKind) String() string {
	if k == DeliveryActionBar {
		return "action_bar"
	}
	return "chat"
}

// Delivery is one outbound message waiting for its recipient.
type Delivery struct {
	Kind      DeliveryKind
	Recipient uuid.UUID
	Update    HUDUpdate
	Text      string
}
