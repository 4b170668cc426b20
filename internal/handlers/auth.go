// internal/handlers/auth.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/mail"
	"net/url"

	"github.com/peerlingo/peerlingo/internal/database"
	"github.com/peerlingo/peerlingo/internal/middleware"
	"github.com/peerlingo/peerlingo/internal/models"
)

type signupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// SignupHandler creates an account, mirrors it to the chat platform and
// starts a session.
//
// Request payload: { "fullName": ..., "email": ..., "password": ... }
func (s *Server) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if req.FullName == "" || req.Email == "" || req.Password == "" {
		s.writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if len(req.Password) < 6 {
		s.writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	user := &models.User{
		FullName:   req.FullName,
		Email:      req.Email,
		Password:   req.Password,
		ProfilePic: randomAvatarURL(),
	}

	if err := s.Store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			s.writeMessage(w, http.StatusBadRequest, "Email already exists, please use a different one")
			return
		}
		s.internalError(w, "failed to create user", err)
		return
	}

	// Mirror the profile so the chat platform can render the new user.
	// Best effort: signup does not fail over a platform hiccup.
	if err := s.Realtime.UpsertUser(r.Context(), user); err != nil {
		s.Logger.WithError(err).Warn("failed to upsert user to chat platform")
	}

	if err := s.startSession(w, user); err != nil {
		s.internalError(w, "failed to create session", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, userResponse{Success: true, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler verifies credentials and starts a session.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user, err := s.Store.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := s.startSession(w, user); err != nil {
		s.internalError(w, "failed to create session", err)
		return
	}
	s.writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// LogoutHandler clears the session cookie. It succeeds whether or not a
// session existed.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w)
	s.writeMessage(w, http.StatusOK, "Logout successful")
}

type onboardingRequest struct {
	FullName         string `json:"fullName"`
	Bio              string `json:"bio"`
	NativeLanguage   string `json:"nativeLanguage"`
	LearningLanguage string `json:"learningLanguage"`
	Location         string `json:"location"`
}

// OnboardingHandler completes the profile and flips the onboarded flag,
// which makes the user visible to recommendations.
func (s *Server) OnboardingHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req onboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.FullName == "" || req.Bio == "" || req.NativeLanguage == "" ||
		req.LearningLanguage == "" || req.Location == "" {
		s.writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user.FullName = req.FullName
	user.Bio = req.Bio
	user.NativeLanguage = req.NativeLanguage
	user.LearningLanguage = req.LearningLanguage
	user.Location = req.Location
	user.IsOnboarded = true

	if err := s.Store.UpdateUserProfile(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		s.internalError(w, "failed to update profile", err)
		return
	}

	if err := s.Realtime.UpsertUser(r.Context(), user); err != nil {
		s.Logger.WithError(err).Warn("failed to upsert user to chat platform")
	}

	s.writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// MeHandler returns the authenticated user.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, userResponse{Success: true, User: middleware.UserFrom(r.Context())})
}

// startSession mints a session token and sets the HTTP-only cookie.
func (s *Server) startSession(w http.ResponseWriter, user *models.User) error {
	token, err := s.Sessions.CreateToken(user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.Sessions.TTL().Seconds()),
	})
	return nil
}

// randomAvatarURL picks one of the hosted placeholder avatars.
func randomAvatarURL() string {
	idx := rand.Intn(100) + 1
	u := url.URL{
		Scheme: "https",
		Host:   "avatar.iran.liara.run",
		Path:   fmt.Sprintf("/public/%d.png", idx),
	}
	return u.String()
}
