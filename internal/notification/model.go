package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notification is an admin message as recorded in the inbox, whether or not
// the platform delivered it
type Notification struct {
	ID            uuid.UUID `json:"id"`
	RecipientID   int64     `json:"recipient_id"`
	Kind          Kind      `json:"kind"`
	Message       string    `json:"message"`
	Delivered     bool      `json:"delivered"`
	DeliveryError *string   `json:"delivery_error,omitempty"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

// Kind classifies a notification by the headline of its message
type Kind string

const (
	KindMemberJoined Kind = "MEMBER_JOINED"
	KindRentalEnded  Kind = "RENTAL_ENDED"
	KindOther        Kind = "OTHER"
)

// KindOf derives the kind from the first line of a message
func KindOf(message string) Kind {
	headline, _, _ := strings.Cut(message, "\n")
	switch headline {
	case "New member":
		return KindMemberJoined
	case "Rental ended":
		return KindRentalEnded
	}
	return KindOther
}
