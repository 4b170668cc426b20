// internal/handlers/user.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/peerlingo/peerlingo/internal/database"
	"github.com/peerlingo/peerlingo/internal/middleware"
)

// RecommendedUsersHandler returns onboarded users the caller could befriend:
// never the caller, never an existing friend. Ordering is unspecified and
// callers must not depend on it.
func (s *Server) RecommendedUsersHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	profiles, err := s.Store.RecommendUsers(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, "failed to list recommended users", err)
		return
	}
	s.writeJSON(w, http.StatusOK, profiles)
}

// FriendsHandler returns the caller's friends as public profiles. An empty
// list is a valid result.
func (s *Server) FriendsHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	friends, err := s.Store.ListFriends(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		s.internalError(w, "failed to list friends", err)
		return
	}
	s.writeJSON(w, http.StatusOK, friends)
}
