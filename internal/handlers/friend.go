// internal/handlers/friend.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/peerlingo/peerlingo/internal/database"
	"github.com/peerlingo/peerlingo/internal/events"
	"github.com/peerlingo/peerlingo/internal/middleware"
)

// SendFriendRequestHandler creates a pending request from the caller to the
// user named in the path.
func (s *Server) SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	recipientID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	req, err := s.Store.CreateFriendRequest(r.Context(), user.ID, recipientID)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrInvalidRequest):
		s.writeMessage(w, http.StatusBadRequest, "You cannot send request to yourself")
		return
	case errors.Is(err, database.ErrNotFound):
		s.writeMessage(w, http.StatusNotFound, "Recipient not found")
		return
	case errors.Is(err, database.ErrAlreadyFriends):
		s.writeMessage(w, http.StatusBadRequest, "Already friends")
		return
	case errors.Is(err, database.ErrConflict):
		s.writeMessage(w, http.StatusBadRequest, "Friend request already exists")
		return
	default:
		s.internalError(w, "failed to create friend request", err)
		return
	}

	s.publish(r.Context(), events.Record{
		Type:        events.TypeRequestSent,
		RequestID:   req.ID,
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
	})
	s.writeJSON(w, http.StatusCreated, req)
}

// AcceptFriendRequestHandler performs the accept transition. Only the
// recipient may accept; the request record is gone afterwards, so a repeat
// call observes 404.
func (s *Server) AcceptFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	req, err := s.Store.AcceptFriendRequest(r.Context(), requestID, user.ID)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNotFound):
		s.writeMessage(w, http.StatusNotFound, "Friend request not found")
		return
	case errors.Is(err, database.ErrForbidden):
		s.writeMessage(w, http.StatusForbidden, "Not authorized")
		return
	default:
		s.internalError(w, "failed to accept friend request", err)
		return
	}

	s.publish(r.Context(), events.Record{
		Type:        events.TypeRequestAccepted,
		RequestID:   req.ID,
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
	})
	s.writeMessage(w, http.StatusOK, "Friend request accepted")
}

// IncomingFriendRequestsHandler lists pending requests addressed to the
// caller, with sender profiles expanded.
func (s *Server) IncomingFriendRequestsHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	reqs, err := s.Store.ListIncomingRequests(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, "failed to list incoming friend requests", err)
		return
	}
	s.writeJSON(w, http.StatusOK, reqs)
}

// OutgoingFriendRequestsHandler lists pending requests the caller sent, with
// recipient profiles expanded.
func (s *Server) OutgoingFriendRequestsHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	reqs, err := s.Store.ListOutgoingRequests(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, "failed to list outgoing friend requests", err)
		return
	}
	s.writeJSON(w, http.StatusOK, reqs)
}
