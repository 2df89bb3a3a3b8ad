package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vocespace/spacekeeper/internal/modules/model"
	"github.com/vocespace/spacekeeper/internal/modules/repo"
	"go.uber.org/zap"
)

// SpaceService is the only component that mutates space records. Every
// mutation reads the full record, changes it in memory and writes it back.
// There is no locking: concurrent writers to the same space race and the
// last write wins.
type SpaceService interface {
	GetSpace(ctx context.Context, spaceID string) (*model.Space, error)
	ListSpaces(ctx context.Context) (map[string]*model.Space, error)
	DeleteSpace(ctx context.Context, spaceID string) error

	UpsertParticipant(ctx context.Context, spaceID, participantID string, patch model.ParticipantPatch) (*model.Space, error)
	RemoveParticipant(ctx context.Context, spaceID, participantID string) (*RemoveParticipantResult, error)
	TransferOwnership(ctx context.Context, spaceID, newOwnerID string) (*model.Space, error)
	GenUniqueParticipantName(ctx context.Context, spaceID string) (string, error)

	SetChildRoom(ctx context.Context, spaceID string, room model.ChildRoom) (*model.Space, error)
	AddParticipantToChildRoom(ctx context.Context, spaceID, childName, participantID string) (*model.Space, error)
	RemoveParticipantFromChildRoom(ctx context.Context, spaceID, childName, participantID string) (*model.Space, error)
	DeleteChildRoom(ctx context.Context, spaceID, childName string) (*model.Space, error)
	RenameChildRoom(ctx context.Context, spaceID, childName, newName string) (*model.Space, error)
	SwitchChildRoomPrivacy(ctx context.Context, spaceID, childName string, isPrivate bool) (*model.Space, error)

	AddStatusDefinition(ctx context.Context, spaceID string, def model.UserDefineStatus) (*model.Space, error)
	UpdateRecordSettings(ctx context.Context, spaceID string, patch model.RecordPatch) (*model.Space, error)
	SetPersistence(ctx context.Context, spaceID, requesterID string, persistence bool) (*model.Space, error)
	UpdateApps(ctx context.Context, spaceID, requesterID string, apps []string) (*model.Space, error)

	Usage(ctx context.Context, spaceID string) ([]model.TimeRecord, error)
	AllUsage(ctx context.Context) (map[string][]model.TimeRecord, error)
	SendChat(ctx context.Context, spaceID string, msg model.ChatMessage) (*model.ChatMessage, error)
	ChatHistory(ctx context.Context, spaceID string) ([]model.ChatMessage, error)
}

// RemoveParticipantResult reports what a removal cascaded into.
type RemoveParticipantResult struct {
	ClearAll   bool   `json:"clearAll"`
	NewOwnerID string `json:"newOwnerId,omitempty"`
	// UsageErr is set when the space was deleted but its usage interval
	// could not be closed. The removal still succeeded.
	UsageErr error `json:"-"`
}

type spaceService struct {
	r      repo.SpaceRepo
	notify Notifier
	log    *zap.Logger
	now    func() time.Time
}

func NewSpaceService(r repo.SpaceRepo, notify Notifier, log *zap.Logger) SpaceService {
	if notify == nil {
		notify = NopNotifier()
	}
	return &spaceService{
		r:      r,
		notify: notify,
		log:    log,
		now:    time.Now,
	}
}

func (s *spaceService) ready(op string) error {
	return wrapStore(op, s.r.Ready())
}

// load fetches a space after the eager store check.
func (s *spaceService) load(ctx context.Context, op, spaceID string) (*model.Space, error) {
	if err := s.ready(op); err != nil {
		return nil, err
	}
	if spaceID == "" {
		return nil, invalid("%s: empty space id", op)
	}
	sp, err := s.r.Get(ctx, spaceID)
	if err != nil {
		if errors.Is(err, repo.ErrSpaceNotFound) {
			return nil, notFound("space %s", spaceID)
		}
		return nil, wrapStore(op, err)
	}
	return sp, nil
}

func (s *spaceService) save(ctx context.Context, op string, sp *model.Space) error {
	return wrapStore(op, s.r.Set(ctx, sp.ID, sp))
}

func (s *spaceService) emit(ctx context.Context, name, spaceID, recipient string, payload any) {
	s.notify.Emit(ctx, model.Event{Name: name, SpaceID: spaceID, Recipient: recipient, Payload: payload})
}

func (s *spaceService) GetSpace(ctx context.Context, spaceID string) (*model.Space, error) {
	return s.load(ctx, "get space", spaceID)
}

func (s *spaceService) ListSpaces(ctx context.Context) (map[string]*model.Space, error) {
	if err := s.ready("list spaces"); err != nil {
		return nil, err
	}
	all, err := s.r.ListAll(ctx)
	if err != nil {
		return nil, wrapStore("list spaces", err)
	}
	return all, nil
}

func (s *spaceService) DeleteSpace(ctx context.Context, spaceID string) error {
	sp, err := s.load(ctx, "delete space", spaceID)
	if err != nil {
		return err
	}
	if err := s.deleteRecord(ctx, sp); err != nil {
		return err
	}
	s.emit(ctx, model.EventSpaceCleared, spaceID, "", nil)
	return nil
}

// deleteRecord removes the space and closes its usage interval. A failure to
// close the interval is logged and not returned.
func (s *spaceService) deleteRecord(ctx context.Context, sp *model.Space) error {
	err := s.r.Delete(ctx, sp.ID, sp.StartAt)
	if errors.Is(err, repo.ErrUsageNotClosed) {
		s.log.Warn("space deleted without closing usage interval", zap.String("space_id", sp.ID), zap.Error(err))
		return nil
	}
	return wrapStore("delete space", err)
}

func (s *spaceService) UpsertParticipant(ctx context.Context, spaceID, participantID string, patch model.ParticipantPatch) (*model.Space, error) {
	const op = "upsert participant"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	if spaceID == "" || participantID == "" {
		return nil, invalid("%s: empty space or participant id", op)
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	created := false
	sp, err := s.r.Get(ctx, spaceID)
	switch {
	case errors.Is(err, repo.ErrSpaceNotFound):
		sp = model.NewSpace(spaceID, participantID, now)
		created = true
	case err != nil:
		return nil, wrapStore(op, err)
	}

	if patch.Status != nil && !model.IsBuiltinStatus(*patch.Status) {
		if _, ok := sp.StatusDefinition(*patch.Status); !ok {
			return nil, notFound("status definition %s", *patch.Status)
		}
	}

	ps, exists := sp.Participants[participantID]
	if !exists {
		ps = model.DefaultParticipant(now)
	}
	ps.Apply(patch)
	if ps.Name == "" {
		ps.Name = nextUserName(sp)
	}
	sp.Participants[participantID] = ps

	// an empty persistent space keeps its previous owner id around
	if _, ok := sp.Participants[sp.OwnerID]; !ok {
		sp.OwnerID = participantID
	}

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}

	if created {
		if err := s.r.OpenUsage(ctx, spaceID, now); err != nil {
			s.log.Warn("space created without opening usage interval", zap.String("space_id", spaceID), zap.Error(err))
		}
		s.log.Info("space created", zap.String("space_id", spaceID), zap.String("owner_id", participantID))
	}

	s.emit(ctx, model.EventParticipantUpdated, spaceID, "", map[string]any{
		"participantId": participantID,
		"settings":      ps,
	})
	return sp, nil
}

func validatePatch(p model.ParticipantPatch) error {
	if p.Volume != nil && (*p.Volume < 0 || *p.Volume > 100) {
		return invalid("volume %d out of range [0,100]", *p.Volume)
	}
	if p.Blur != nil && (*p.Blur < 0 || *p.Blur > 1) {
		return invalid("blur %v out of range [0,1]", *p.Blur)
	}
	if p.ScreenBlur != nil && (*p.ScreenBlur < 0 || *p.ScreenBlur > 1) {
		return invalid("screen blur %v out of range [0,1]", *p.ScreenBlur)
	}
	return nil
}

func (s *spaceService) RemoveParticipant(ctx context.Context, spaceID, participantID string) (*RemoveParticipantResult, error) {
	const op = "remove participant"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	if _, ok := sp.Participants[participantID]; !ok {
		return nil, notFound("participant %s in space %s", participantID, spaceID)
	}

	delete(sp.Participants, participantID)
	for i := range sp.Children {
		sp.Children[i].Remove(participantID)
	}

	// persist before any ownership change so a concurrent transfer does not
	// read the removed participant back
	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}

	res := &RemoveParticipantResult{}
	if len(sp.Participants) == 0 {
		if sp.Persistence {
			s.emit(ctx, model.EventParticipantLeft, spaceID, "", map[string]any{"participantId": participantID})
			return res, nil
		}
		err := s.r.Delete(ctx, spaceID, sp.StartAt)
		switch {
		case errors.Is(err, repo.ErrUsageNotClosed):
			s.log.Warn("space deleted without closing usage interval", zap.String("space_id", spaceID), zap.Error(err))
			res.UsageErr = err
		case err != nil:
			return nil, wrapStore(op, err)
		}
		res.ClearAll = true
		s.log.Info("space cleared", zap.String("space_id", spaceID))
		s.emit(ctx, model.EventSpaceCleared, spaceID, "", nil)
		return res, nil
	}

	s.emit(ctx, model.EventParticipantLeft, spaceID, "", map[string]any{"participantId": participantID})

	if sp.OwnerID == participantID {
		sp.OwnerID = nextOwner(sp.Participants)
		if err := s.save(ctx, op, sp); err != nil {
			return nil, err
		}
		res.NewOwnerID = sp.OwnerID
		s.emit(ctx, model.EventOwnerChanged, spaceID, "", map[string]any{"ownerId": sp.OwnerID})
	}
	return res, nil
}

// nextOwner picks the participant who joined earliest, breaking ties by id.
func nextOwner(participants map[string]model.ParticipantSettings) string {
	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := participants[ids[i]], participants[ids[j]]
		if a.StartAt != b.StartAt {
			return a.StartAt < b.StartAt
		}
		return ids[i] < ids[j]
	})
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

func (s *spaceService) TransferOwnership(ctx context.Context, spaceID, newOwnerID string) (*model.Space, error) {
	const op = "transfer ownership"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	if _, ok := sp.Participants[newOwnerID]; !ok {
		return nil, notFound("participant %s in space %s", newOwnerID, spaceID)
	}
	sp.OwnerID = newOwnerID
	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventOwnerChanged, spaceID, "", map[string]any{"ownerId": newOwnerID})
	return sp, nil
}

var userNamePattern = regexp.MustCompile(`^User (\d+)$`)

// GenUniqueParticipantName suggests the next free "User NN" name. Two
// concurrent callers may get the same suggestion; nothing is reserved.
func (s *spaceService) GenUniqueParticipantName(ctx context.Context, spaceID string) (string, error) {
	sp, err := s.load(ctx, "gen participant name", spaceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return formatUserName(1), nil
		}
		return "", err
	}
	return nextUserName(sp), nil
}

func nextUserName(sp *model.Space) string {
	maxN := 0
	for _, p := range sp.Participants {
		m := userNamePattern.FindStringSubmatch(p.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > maxN {
			maxN = n
		}
	}
	return formatUserName(maxN + 1)
}

func formatUserName(n int) string {
	return fmt.Sprintf("User %02d", n)
}

func (s *spaceService) SetChildRoom(ctx context.Context, spaceID string, room model.ChildRoom) (*model.Space, error) {
	const op = "set child room"
	if room.Name == "" {
		return nil, invalid("%s: empty room name", op)
	}
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	if sp.ChildIndex(room.Name) >= 0 {
		return sp, nil
	}

	members := make([]string, 0, len(room.Participants))
	seen := map[string]bool{}
	for _, pid := range room.Participants {
		if seen[pid] {
			continue
		}
		seen[pid] = true
		for i := range sp.Children {
			sp.Children[i].Remove(pid)
		}
		members = append(members, pid)
	}
	room.Participants = members

	sp.Children = append(sp.Children, room)
	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventChildRoomUpdated, spaceID, "", sp.Children)
	return sp, nil
}

func (s *spaceService) AddParticipantToChildRoom(ctx context.Context, spaceID, childName, participantID string) (*model.Space, error) {
	const op = "add participant to child room"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	idx := sp.ChildIndex(childName)
	if idx < 0 {
		return nil, notFound("child room %s in space %s", childName, spaceID)
	}
	if sp.Children[idx].Has(participantID) {
		return nil, fmt.Errorf("%w: %s in child room %s", ErrAlreadyMember, participantID, childName)
	}

	for i := range sp.Children {
		sp.Children[i].Remove(participantID)
	}
	sp.Children[idx].Participants = append(sp.Children[idx].Participants, participantID)

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventChildRoomUpdated, spaceID, "", sp.Children)
	return sp, nil
}

func (s *spaceService) RemoveParticipantFromChildRoom(ctx context.Context, spaceID, childName, participantID string) (*model.Space, error) {
	const op = "remove participant from child room"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	idx := sp.ChildIndex(childName)
	if idx < 0 {
		return nil, notFound("child room %s in space %s", childName, spaceID)
	}
	if !sp.Children[idx].Remove(participantID) {
		return nil, notFound("participant %s in child room %s", participantID, childName)
	}

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventChildRoomUpdated, spaceID, "", sp.Children)
	return sp, nil
}

func (s *spaceService) DeleteChildRoom(ctx context.Context, spaceID, childName string) (*model.Space, error) {
	const op = "delete child room"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	idx := sp.ChildIndex(childName)
	if idx < 0 {
		return nil, notFound("child room %s in space %s", childName, spaceID)
	}
	sp.Children = append(sp.Children[:idx], sp.Children[idx+1:]...)

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventChildRoomUpdated, spaceID, "", sp.Children)
	return sp, nil
}

func (s *spaceService) RenameChildRoom(ctx context.Context, spaceID, childName, newName string) (*model.Space, error) {
	const op = "rename child room"
	if newName == "" {
		return nil, invalid("%s: empty room name", op)
	}
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	idx := sp.ChildIndex(childName)
	if idx < 0 {
		return nil, notFound("child room %s in space %s", childName, spaceID)
	}
	if newName == childName {
		return sp, nil
	}
	if sp.ChildIndex(newName) >= 0 {
		return nil, alreadyExists("child room %s in space %s", newName, spaceID)
	}
	sp.Children[idx].Name = newName

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventChildRoomUpdated, spaceID, "", sp.Children)
	return sp, nil
}

func (s *spaceService) SwitchChildRoomPrivacy(ctx context.Context, spaceID, childName string, isPrivate bool) (*model.Space, error) {
	const op = "switch child room privacy"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	idx := sp.ChildIndex(childName)
	if idx < 0 {
		return nil, notFound("child room %s in space %s", childName, spaceID)
	}
	sp.Children[idx].IsPrivate = isPrivate

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventChildRoomUpdated, spaceID, "", sp.Children)
	return sp, nil
}

func (s *spaceService) AddStatusDefinition(ctx context.Context, spaceID string, def model.UserDefineStatus) (*model.Space, error) {
	const op = "add status definition"
	if def.Name == "" {
		return nil, invalid("%s: empty status name", op)
	}
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	for _, st := range sp.Status {
		if st.Name == def.Name {
			return nil, alreadyExists("status %q in space %s", def.Name, spaceID)
		}
		if def.ID != "" && st.ID == def.ID {
			return nil, alreadyExists("status id %s in space %s", def.ID, spaceID)
		}
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	sp.Status = append(sp.Status, def)

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventSpaceUpdated, spaceID, "", map[string]any{"status": sp.Status})
	return sp, nil
}

func (s *spaceService) UpdateRecordSettings(ctx context.Context, spaceID string, patch model.RecordPatch) (*model.Space, error) {
	const op = "update record settings"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	sp.Record.Apply(patch)

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventRecordUpdated, spaceID, "", sp.Record)
	return sp, nil
}

func (s *spaceService) SetPersistence(ctx context.Context, spaceID, requesterID string, persistence bool) (*model.Space, error) {
	const op = "set persistence"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	if sp.OwnerID != requesterID {
		return nil, fmt.Errorf("%w: only the owner can change persistence", ErrForbidden)
	}
	sp.Persistence = persistence

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventSpaceUpdated, spaceID, "", map[string]any{"persistence": persistence})
	return sp, nil
}

func (s *spaceService) UpdateApps(ctx context.Context, spaceID, requesterID string, apps []string) (*model.Space, error) {
	const op = "update apps"
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	if sp.OwnerID != requesterID {
		return nil, fmt.Errorf("%w: only the owner can change apps", ErrForbidden)
	}

	set := make([]string, 0, len(apps))
	seen := map[string]bool{}
	for _, a := range apps {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		set = append(set, a)
	}
	sp.Apps = set

	if err := s.save(ctx, op, sp); err != nil {
		return nil, err
	}
	s.emit(ctx, model.EventSpaceUpdated, spaceID, "", map[string]any{"apps": sp.Apps})
	return sp, nil
}

func (s *spaceService) Usage(ctx context.Context, spaceID string) ([]model.TimeRecord, error) {
	if err := s.ready("usage"); err != nil {
		return nil, err
	}
	records, err := s.r.Usage(ctx, spaceID)
	if err != nil {
		return nil, wrapStore("usage", err)
	}
	return records, nil
}

func (s *spaceService) AllUsage(ctx context.Context) (map[string][]model.TimeRecord, error) {
	if err := s.ready("all usage"); err != nil {
		return nil, err
	}
	all, err := s.r.AllUsage(ctx)
	if err != nil {
		return nil, wrapStore("all usage", err)
	}
	return all, nil
}

func (s *spaceService) SendChat(ctx context.Context, spaceID string, msg model.ChatMessage) (*model.ChatMessage, error) {
	const op = "send chat"
	if msg.Content == "" {
		return nil, invalid("%s: empty content", op)
	}
	sp, err := s.load(ctx, op, spaceID)
	if err != nil {
		return nil, err
	}
	sender, ok := sp.Participants[msg.SenderID]
	if !ok {
		return nil, notFound("participant %s in space %s", msg.SenderID, spaceID)
	}

	msg.ID = uuid.NewString()
	msg.SenderName = sender.Name
	msg.Timestamp = s.now().UnixMilli()
	if err := s.r.AppendChat(ctx, spaceID, msg); err != nil {
		return nil, wrapStore(op, err)
	}
	s.emit(ctx, model.EventChatMessage, spaceID, "", msg)
	return &msg, nil
}

func (s *spaceService) ChatHistory(ctx context.Context, spaceID string) ([]model.ChatMessage, error) {
	if err := s.ready("chat history"); err != nil {
		return nil, err
	}
	msgs, err := s.r.Chat(ctx, spaceID)
	if err != nil {
		return nil, wrapStore("chat history", err)
	}
	return msgs, nil
}
