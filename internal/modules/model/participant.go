package model

// Built-in participant statuses. Any other status value must be the ID of a
// UserDefineStatus in the same space.
const (
	StatusOnline  = "online"
	StatusBusy    = "busy"
	StatusLeisure = "leisure"
	StatusOffline = "offline"
)

func IsBuiltinStatus(s string) bool {
	switch s {
	case StatusOnline, StatusBusy, StatusLeisure, StatusOffline:
		return true
	}
	return false
}

type VirtualSettings struct {
	Role    string `json:"role"`
	Bg      string `json:"bg"`
	Enabled bool   `json:"enabled"`
}

// ParticipantSettings is one participant's state within a space.
type ParticipantSettings struct {
	Name            string          `json:"name"`
	Volume          int             `json:"volume"`
	Blur            float64         `json:"blur"`
	ScreenBlur      float64         `json:"screenBlur"`
	Status          string          `json:"status"`
	SocketID        string          `json:"socketId"`
	StartAt         int64           `json:"startAt"`
	Virtual         VirtualSettings `json:"virtual"`
	OpenShareAudio  bool            `json:"openShareAudio"`
	OpenPromptSound bool            `json:"openPromptSound"`
}

// ParticipantPatch carries a partial update. Nil fields are left untouched;
// Virtual replaces the whole virtual block when set. StartAt is not
// patchable: the server stamps it on first join and owner succession
// orders by it.
type ParticipantPatch struct {
	Name            *string          `json:"name,omitempty" binding:"omitempty,max=64"`
	Volume          *int             `json:"volume,omitempty" binding:"omitempty,min=0,max=100"`
	Blur            *float64         `json:"blur,omitempty" binding:"omitempty,min=0,max=1"`
	ScreenBlur      *float64         `json:"screenBlur,omitempty" binding:"omitempty,min=0,max=1"`
	Status          *string          `json:"status,omitempty"`
	SocketID        *string          `json:"socketId,omitempty"`
	Virtual         *VirtualSettings `json:"virtual,omitempty"`
	OpenShareAudio  *bool            `json:"openShareAudio,omitempty"`
	OpenPromptSound *bool            `json:"openPromptSound,omitempty"`
}

// Apply merges p into ps field by field.
func (ps *ParticipantSettings) Apply(p ParticipantPatch) {
	if p.Name != nil {
		ps.Name = *p.Name
	}
	if p.Volume != nil {
		ps.Volume = *p.Volume
	}
	if p.Blur != nil {
		ps.Blur = *p.Blur
	}
	if p.ScreenBlur != nil {
		ps.ScreenBlur = *p.ScreenBlur
	}
	if p.Status != nil {
		ps.Status = *p.Status
	}
	if p.SocketID != nil {
		ps.SocketID = *p.SocketID
	}
	if p.Virtual != nil {
		ps.Virtual = *p.Virtual
	}
	if p.OpenShareAudio != nil {
		ps.OpenShareAudio = *p.OpenShareAudio
	}
	if p.OpenPromptSound != nil {
		ps.OpenPromptSound = *p.OpenPromptSound
	}
}

// DefaultParticipant is the state a participant starts from on first update.
func DefaultParticipant(startAt int64) ParticipantSettings {
	return ParticipantSettings{
		Volume:          100,
		Status:          StatusOnline,
		StartAt:         startAt,
		OpenPromptSound: true,
	}
}
