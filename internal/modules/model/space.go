package model

import "strings"

// ValidSpaceID reports whether id is usable as a store key. Glob and
// separator characters would collide with the key layout and SCAN patterns.
func ValidSpaceID(id string) bool {
	return id != "" && len(id) <= 128 && !strings.ContainsAny(id, ":*?[] ")
}

// Space is one meeting's authoritative state. It is stored as a single JSON
// record keyed by ID; ID itself is not part of the record body.
type Space struct {
	ID           string                         `json:"-"`
	Participants map[string]ParticipantSettings `json:"participants"`
	OwnerID      string                         `json:"ownerId"`
	Record       RecordSettings                 `json:"record"`
	StartAt      int64                          `json:"startAt"`
	Children     []ChildRoom                    `json:"children"`
	Status       []UserDefineStatus             `json:"status,omitempty"`
	Apps         []string                       `json:"apps"`
	Persistence  bool                           `json:"persistence"`
}

// NewSpace returns an empty space owned by ownerID.
func NewSpace(id, ownerID string, startAt int64) *Space {
	return &Space{
		ID:           id,
		Participants: map[string]ParticipantSettings{},
		OwnerID:      ownerID,
		StartAt:      startAt,
		Children:     []ChildRoom{},
		Apps:         []string{},
	}
}

// Normalize replaces nil collections left by decoding older records.
func (s *Space) Normalize() {
	if s.Participants == nil {
		s.Participants = map[string]ParticipantSettings{}
	}
	if s.Children == nil {
		s.Children = []ChildRoom{}
	}
	if s.Apps == nil {
		s.Apps = []string{}
	}
	for i := range s.Children {
		if s.Children[i].Participants == nil {
			s.Children[i].Participants = []string{}
		}
	}
}

// ChildIndex returns the index of the child room with name, or -1.
func (s *Space) ChildIndex(name string) int {
	for i := range s.Children {
		if s.Children[i].Name == name {
			return i
		}
	}
	return -1
}

// StatusDefinition looks up a user-defined status by ID.
func (s *Space) StatusDefinition(id string) (UserDefineStatus, bool) {
	for _, st := range s.Status {
		if st.ID == id {
			return st, true
		}
	}
	return UserDefineStatus{}, false
}

type RecordSettings struct {
	Active   bool   `json:"active"`
	EgressID string `json:"egressId,omitempty"`
	FilePath string `json:"filePath,omitempty"`
}

// RecordPatch is shallow-merged into RecordSettings; nil fields are kept.
type RecordPatch struct {
	Active   *bool   `json:"active,omitempty"`
	EgressID *string `json:"egressId,omitempty"`
	FilePath *string `json:"filePath,omitempty"`
}

func (r *RecordSettings) Apply(p RecordPatch) {
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.EgressID != nil {
		r.EgressID = *p.EgressID
	}
	if p.FilePath != nil {
		r.FilePath = *p.FilePath
	}
}

// ChildRoom is a breakout room scoped to one space.
type ChildRoom struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
	OwnerID      string   `json:"ownerId"`
	IsPrivate    bool     `json:"isPrivate"`
}

// Has reports whether participantID is a member of the room.
func (c *ChildRoom) Has(participantID string) bool {
	return c.indexOf(participantID) >= 0
}

// Remove drops participantID from the room and reports whether it was present.
func (c *ChildRoom) Remove(participantID string) bool {
	i := c.indexOf(participantID)
	if i < 0 {
		return false
	}
	c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
	return true
}

func (c *ChildRoom) indexOf(participantID string) int {
	for i, p := range c.Participants {
		if p == participantID {
			return i
		}
	}
	return -1
}

// TimeRecord is one usage interval in epoch milliseconds. End is nil while
// the space is still live.
type TimeRecord struct {
	Start int64  `json:"start"`
	End   *int64 `json:"end,omitempty"`
}

type StatusCreator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type StatusIcon struct {
	Key   string `json:"key"`
	Color string `json:"color"`
}

// UserDefineStatus is a named preset participants may select instead of a
// built-in status.
type UserDefineStatus struct {
	ID         string        `json:"id"`
	Creator    StatusCreator `json:"creator"`
	Name       string        `json:"name"`
	Desc       string        `json:"desc"`
	Icon       StatusIcon    `json:"icon"`
	Volume     int           `json:"volume"`
	Blur       float64       `json:"blur"`
	ScreenBlur float64       `json:"screenBlur"`
}
