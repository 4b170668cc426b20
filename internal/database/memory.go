// internal/database/memory.go
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peerlingo/peerlingo/internal/auth"
	"github.com/peerlingo/peerlingo/internal/models"
)

// MemStore is an in-memory Store with the same surface and error vocabulary
// as the Postgres one. It backs the handler tests and local development
// without a database. A single mutex stands in for the store's atomic
// single-document guarantees.
type MemStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	friends  map[uuid.UUID]map[uuid.UUID]bool
	requests map[uuid.UUID]*models.FriendRequest
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:    make(map[uuid.UUID]*models.User),
		friends:  make(map[uuid.UUID]map[uuid.UUID]bool),
		requests: make(map[uuid.UUID]*models.FriendRequest),
	}
}

func (m *MemStore) CreateUser(ctx context.Context, user *models.User) error {
	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrConflict
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Password = hash
	user.CreatedAt = time.Now()

	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemStore) UpdateUserProfile(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	u.FullName = user.FullName
	u.Bio = user.Bio
	u.ProfilePic = user.ProfilePic
	u.NativeLanguage = user.NativeLanguage
	u.LearningLanguage = user.LearningLanguage
	u.Location = user.Location
	u.IsOnboarded = user.IsOnboarded
	return nil
}

func (m *MemStore) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	u, err := m.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	match, err := auth.ComparePasswordAndHash(password, u.Password)
	if err != nil || !match {
		return nil, fmt.Errorf("invalid credentials")
	}
	return u, nil
}

func (m *MemStore) RecommendUsers(ctx context.Context, forUser uuid.UUID) ([]models.PublicProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profiles := []models.PublicProfile{}
	for id, u := range m.users {
		if id == forUser || !u.IsOnboarded || m.friends[forUser][id] {
			continue
		}
		profiles = append(profiles, u.Public())
	}
	return profiles, nil
}

func (m *MemStore) ListFriends(ctx context.Context, forUser uuid.UUID) ([]models.PublicProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[forUser]; !ok {
		return nil, ErrNotFound
	}
	profiles := []models.PublicProfile{}
	for id := range m.friends[forUser] {
		if u, ok := m.users[id]; ok {
			profiles = append(profiles, u.Public())
		}
	}
	return profiles, nil
}

func (m *MemStore) CreateFriendRequest(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error) {
	if sender == recipient {
		return nil, ErrInvalidRequest
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[recipient]; !ok {
		return nil, ErrNotFound
	}
	if m.friends[sender][recipient] {
		return nil, ErrAlreadyFriends
	}
	for _, r := range m.requests {
		samePair := (r.SenderID == sender && r.RecipientID == recipient) ||
			(r.SenderID == recipient && r.RecipientID == sender)
		if samePair && r.Status == models.RequestStatusPending {
			return nil, ErrRequestExists
		}
	}

	req := &models.FriendRequest{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Status:      models.RequestStatusPending,
		CreatedAt:   time.Now(),
	}
	m.requests[req.ID] = req
	cp := *req
	return &cp, nil
}

func (m *MemStore) AcceptFriendRequest(ctx context.Context, requestID, actingUser uuid.UUID) (*models.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	if req.RecipientID != actingUser {
		return nil, ErrForbidden
	}

	m.addEdge(req.SenderID, req.RecipientID)
	m.addEdge(req.RecipientID, req.SenderID)
	delete(m.requests, requestID)

	cp := *req
	cp.Status = models.RequestStatusAccepted
	return &cp, nil
}

// addEdge is an idempotent set insertion; callers hold the mutex.
func (m *MemStore) addEdge(a, b uuid.UUID) {
	if m.friends[a] == nil {
		m.friends[a] = make(map[uuid.UUID]bool)
	}
	m.friends[a][b] = true
}

func (m *MemStore) ListIncomingRequests(ctx context.Context, forUser uuid.UUID) ([]models.ExpandedFriendRequest, error) {
	return m.listRequests(func(r *models.FriendRequest) bool { return r.RecipientID == forUser })
}

func (m *MemStore) ListOutgoingRequests(ctx context.Context, forUser uuid.UUID) ([]models.ExpandedFriendRequest, error) {
	return m.listRequests(func(r *models.FriendRequest) bool { return r.SenderID == forUser })
}

func (m *MemStore) listRequests(match func(*models.FriendRequest) bool) ([]models.ExpandedFriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqs := []models.ExpandedFriendRequest{}
	for _, r := range m.requests {
		if r.Status != models.RequestStatusPending || !match(r) {
			continue
		}
		sender, okS := m.users[r.SenderID]
		recipient, okR := m.users[r.RecipientID]
		if !okS || !okR {
			// Strict expansion contract: drop rather than return partial.
			continue
		}
		reqs = append(reqs, models.ExpandedFriendRequest{
			ID:        r.ID,
			Sender:    sender.Public(),
			Recipient: recipient.Public(),
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		})
	}
	return reqs, nil
}
