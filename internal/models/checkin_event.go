package models

import "time"

// CheckInEventDto is the payload published to Kafka after a successful
// state transition. Consumers (display boards, analytics) key on guest_id.
type CheckInEventDto struct {
	GuestID          string    `json:"guest_id"`
	GuestName        string    `json:"guest_name"`
	Action           string    `json:"action"`
	ActorName        string    `json:"actor_name"`
	PlusOnes         int       `json:"plus_ones"`
	ConfirmationCode string    `json:"confirmation_code,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func NewCheckInEventDto(g *Guest, action, actor string, at time.Time) CheckInEventDto {
	dto := CheckInEventDto{
		GuestID:   g.GuestID,
		GuestName: g.DisplayName(),
		Action:    action,
		ActorName: actor,
		PlusOnes:  g.PlusOnesCheckedIn,
		Timestamp: at,
	}
	if g.ConfirmationCode != nil {
		dto.ConfirmationCode = *g.ConfirmationCode
	}
	return dto
}
