package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentathing/models"
)

// MemoryStore is an in-process Store for local development and tests.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	messages      map[string][]models.Message
	subs          map[string]map[*memorySub]struct{}
	now           func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
		subs:          make(map[string]map[*memorySub]struct{}),
		now:           time.Now,
	}
}

func (s *MemoryStore) Append(ctx context.Context, conversationID string, m models.Message) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	s.mu.Lock()
	m.ID = uuid.New().String()
	m.CreatedAt = s.now().UTC()
	log := s.messages[conversationID]
	if n := len(log); n > 0 && !m.CreatedAt.After(log[n-1].CreatedAt) {
		m.CreatedAt = log[n-1].CreatedAt.Add(time.Microsecond)
	}
	s.messages[conversationID] = append(log, m)
	if c, ok := s.conversations[conversationID]; ok {
		c.LastMessage, c.UpdatedAt = m.Text, m.CreatedAt
	}
	subs := make([]*memorySub, 0, len(s.subs[conversationID]))
	for sub := range s.subs[conversationID] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.poke()
	}
	return m, nil
}

func (s *MemoryStore) List(ctx context.Context, conversationID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(conversationID), nil
}

func (s *MemoryStore) snapshotLocked(conversationID string) []models.Message {
	out := make([]models.Message, len(s.messages[conversationID]))
	copy(out, s.messages[conversationID])
	return out
}

func (s *MemoryStore) Subscribe(ctx context.Context, conversationID string, onChange func([]models.Message)) (Subscription, error) {
	sub := &memorySub{
		store:  s,
		convID: conversationID,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	if s.subs[conversationID] == nil {
		s.subs[conversationID] = make(map[*memorySub]struct{})
	}
	s.subs[conversationID][sub] = struct{}{}
	s.mu.Unlock()

	go sub.run(ctx, onChange)
	sub.poke()
	return sub, nil
}

type memorySub struct {
	store  *MemoryStore
	convID string
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

// poke coalesces change notifications; the listener always reads the latest history.
func (m *memorySub) poke() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *memorySub) run(ctx context.Context, onChange func([]models.Message)) {
	defer m.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-m.notify:
			m.store.mu.Lock()
			snap := m.store.snapshotLocked(m.convID)
			m.store.mu.Unlock()
			onChange(snap)
		}
	}
}

func (m *memorySub) Unsubscribe() {
	m.once.Do(func() {
		close(m.done)
		m.store.mu.Lock()
		delete(m.store.subs[m.convID], m)
		m.store.mu.Unlock()
	})
}

func (s *MemoryStore) CreateOrGet(ctx context.Context, listingID, listingTitle string, renter, rentee models.Party) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.ListingID == listingID && c.RenterID == renter.UserID && c.RenteeID == rentee.UserID {
			cp := *c
			return &cp, nil
		}
	}
	c := &models.Conversation{
		ID:           uuid.New().String(),
		ListingID:    listingID,
		ListingTitle: listingTitle,
		RenterID:     renter.UserID,
		RenterEmail:  renter.Email,
		RenteeID:     rentee.UserID,
		RenteeEmail:  rentee.Email,
		Participants: participants(renter, rentee),
		UpdatedAt:    s.now().UTC(),
	}
	s.conversations[c.ID] = c
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) Get(ctx context.Context, conversationID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, c := range s.conversations {
		for _, p := range c.Participants {
			if p == userID {
				out = append(out, *c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) Touch(ctx context.Context, conversationID, lastMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return models.ErrNotFound
	}
	c.LastMessage, c.UpdatedAt = lastMessage, s.now().UTC()
	return nil
}

// participants lists ids first (the original conversation key) and emails
// after, so either identity form matches.
func participants(renter, rentee models.Party) []string {
	out := []string{renter.UserID, rentee.UserID}
	for _, e := range []string{renter.Email, rentee.Email} {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
