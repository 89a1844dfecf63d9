// Package events publishes booking lifecycle events to RabbitMQ for
// downstream consumers (the notification feed, reconciliation tooling).
// Publishing is best effort: the commit transaction has already landed
// by the time an event goes out, so failures are logged, never fatal.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindBookingEntered   Kind = "booking.entered"
	KindBookingUpdated   Kind = "booking.updated"
	KindBookingCancelled Kind = "booking.cancelled"
)

// BookingEvent is the wire payload for every booking lifecycle change.
type BookingEvent struct {
	Kind                 Kind      `json:"kind"`
	BookingID            uuid.UUID `json:"bookingId"`
	UserID               uint64    `json:"userId"`
	StakeMinor           int64     `json:"stakeMinor"`
	PotentialReturnMinor int64     `json:"potentialReturnMinor"`
	CompDate             string    `json:"compDate"` // YYYY-MM-DD
	OccurredAt           time.Time `json:"occurredAt"`
}
