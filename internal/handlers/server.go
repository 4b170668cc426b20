// internal/handlers/server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/peerlingo/peerlingo/internal/auth"
	"github.com/peerlingo/peerlingo/internal/events"
	"github.com/peerlingo/peerlingo/internal/middleware"
	"github.com/peerlingo/peerlingo/internal/models"
	"github.com/peerlingo/peerlingo/internal/realtime"
)

// Store is the persistence surface the handlers need. Both the Postgres
// store and the in-memory store satisfy it.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)

	RecommendUsers(ctx context.Context, forUser uuid.UUID) ([]models.PublicProfile, error)
	ListFriends(ctx context.Context, forUser uuid.UUID) ([]models.PublicProfile, error)

	CreateFriendRequest(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, requestID, actingUser uuid.UUID) (*models.FriendRequest, error)
	ListIncomingRequests(ctx context.Context, forUser uuid.UUID) ([]models.ExpandedFriendRequest, error)
	ListOutgoingRequests(ctx context.Context, forUser uuid.UUID) ([]models.ExpandedFriendRequest, error)
}

// Server holds the handler dependencies: storage, session service, the
// real-time platform adapter and the optional event queue.
type Server struct {
	Store    Store
	Sessions *auth.Service
	Realtime realtime.TokenProvider
	Events   *events.Publisher
	Logger   *logrus.Logger
}

// NewServer wires up a Server.
func NewServer(store Store, sessions *auth.Service, rt realtime.TokenProvider, pub *events.Publisher, logger *logrus.Logger) *Server {
	return &Server{
		Store:    store,
		Sessions: sessions,
		Realtime: rt,
		Events:   pub,
		Logger:   logger,
	}
}

// Routes registers every endpoint on a fresh mux. Method and path matching
// is delegated to the stdlib pattern router.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/signup", s.SignupHandler)
	mux.HandleFunc("POST /auth/login", s.LoginHandler)
	mux.HandleFunc("POST /auth/logout", s.LogoutHandler)

	protected := middleware.RequireAuth(s.Sessions, s.Store, s.Logger)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protected(h))
	}

	handle("POST /auth/onboarding", s.OnboardingHandler)
	handle("GET /auth/me", s.MeHandler)

	handle("GET /users", s.RecommendedUsersHandler)
	handle("GET /users/friends", s.FriendsHandler)
	handle("POST /users/friend-request/{id}", s.SendFriendRequestHandler)
	handle("PUT /users/friend-request/{id}/accept", s.AcceptFriendRequestHandler)
	handle("GET /users/friend-requests", s.IncomingFriendRequestsHandler)
	handle("GET /users/outgoing-friend-requests", s.OutgoingFriendRequestsHandler)

	handle("GET /chat/token", s.ChatTokenHandler)

	return mux
}

// writeJSON writes v with the given status. Encoding failures are logged,
// not surfaced; headers are already gone by then.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.WithError(err).Error("failed to write response")
	}
}

// writeMessage writes the uniform { "message": ... } body used by every
// error response and by plain confirmations.
func (s *Server) writeMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"message": msg})
}

// internalError logs the unexpected error and collapses it to a generic 500,
// never leaking internals to the client.
func (s *Server) internalError(w http.ResponseWriter, context string, err error) {
	s.Logger.WithError(err).Error(context)
	s.writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
}

// publish queues a lifecycle event; failures are logged and never fail the
// originating request.
func (s *Server) publish(ctx context.Context, record events.Record) {
	if err := s.Events.Publish(ctx, record); err != nil {
		s.Logger.WithError(err).Warn("failed to publish event")
	}
}
