package model

// Outbound event names.
const (
	EventReinit             = "reinit"
	EventParticipantUpdated = "participant_updated"
	EventParticipantLeft    = "participant_left"
	EventOwnerChanged       = "owner_changed"
	EventSpaceCleared       = "space_cleared"
	EventChildRoomUpdated   = "child_room_updated"
	EventRecordUpdated      = "record_updated"
	EventSpaceUpdated       = "space_updated"
	EventChatMessage        = "chat_message"
)

// Event is a fire-and-forget notification to the clients of one space.
// An empty Recipient addresses every connected participant.
type Event struct {
	Name      string `json:"name"`
	SpaceID   string `json:"spaceId"`
	Recipient string `json:"recipient,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Session is a live room reported by the external session provider.
type Session struct {
	ID string `json:"id"`
}

// SessionParticipant is one identity connected to a provider session.
type SessionParticipant struct {
	Identity string `json:"identity"`
}

// ChatMessage is one entry of a space's chat log.
type ChatMessage struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
}
