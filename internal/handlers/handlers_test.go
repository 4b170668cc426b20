package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/peerlingo/peerlingo/internal/auth"
	"github.com/peerlingo/peerlingo/internal/database"
	"github.com/peerlingo/peerlingo/internal/middleware"
	"github.com/peerlingo/peerlingo/internal/models"
)

// fakeRealtime stands in for the hosted chat platform.
type fakeRealtime struct {
	upserts   []string
	failToken bool
}

func (f *fakeRealtime) CreateToken(userID string) (string, error) {
	if f.failToken {
		return "", errors.New("platform unreachable")
	}
	return "chat-token-" + userID, nil
}

func (f *fakeRealtime) UpsertUser(ctx context.Context, u *models.User) error {
	f.upserts = append(f.upserts, u.ID.String())
	return nil
}

type testEnv struct {
	srv      *Server
	store    *database.MemStore
	realtime *fakeRealtime
	mux      *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions, err := auth.NewService(time.Hour)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	store := database.NewMemStore()
	rt := &fakeRealtime{}
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	srv := NewServer(store, sessions, rt, nil, logger)
	return &testEnv{srv: srv, store: store, realtime: rt, mux: srv.Routes()}
}

// createUser seeds an account directly in the store and returns it with a
// session token.
func (e *testEnv) createUser(t *testing.T, name string, onboarded bool) (*models.User, string) {
	t.Helper()
	u := &models.User{
		FullName:    name,
		Email:       name + "@example.com",
		Password:    "password123",
		IsOnboarded: onboarded,
	}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := e.srv.Sessions.CreateToken(u.ID)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	return u, token
}

func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode message body %q: %v", w.Body.String(), err)
	}
	return body["message"]
}

func TestSignupLoginFlow(t *testing.T) {
	e := newTestEnv(t)

	// signup sets a session cookie and mirrors the user to the platform
	w := e.do("POST", "/auth/signup", "", `{"fullName":"Alice A","email":"alice@example.com","password":"secret123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Success bool        `json:"success"`
		User    models.User `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode signup response: %v", err)
	}
	if !created.Success || created.User.ID == uuid.Nil {
		t.Fatalf("unexpected signup response: %s", w.Body.String())
	}
	if created.User.ProfilePic == "" {
		t.Fatal("expected a generated avatar")
	}
	if len(e.realtime.upserts) != 1 {
		t.Fatalf("expected 1 platform upsert, got %d", len(e.realtime.upserts))
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("expected a session cookie on signup")
	}
	if !sessionCookie.HttpOnly {
		t.Fatal("session cookie must be HTTP-only")
	}

	// the cookie works against a protected endpoint
	w = e.do("GET", "/auth/me", sessionCookie.Value, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /auth/me, got %d: %s", w.Code, w.Body.String())
	}

	// duplicate email
	w = e.do("POST", "/auth/signup", "", `{"fullName":"Alice B","email":"alice@example.com","password":"secret123"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", w.Code)
	}

	// validation
	w = e.do("POST", "/auth/signup", "", `{"fullName":"X","email":"x@example.com","password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", w.Code)
	}
	w = e.do("POST", "/auth/signup", "", `{"fullName":"X","email":"not-an-email","password":"secret123"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", w.Code)
	}

	// login
	w = e.do("POST", "/auth/login", "", `{"email":"alice@example.com","password":"secret123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 login, got %d: %s", w.Code, w.Body.String())
	}
	w = e.do("POST", "/auth/login", "", `{"email":"alice@example.com","password":"wrong-pass"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", w.Code)
	}

	// logout clears the cookie
	w = e.do("POST", "/auth/logout", sessionCookie.Value, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 logout, got %d", w.Code)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected logout to clear the session cookie")
	}
}

func TestProtectedEndpointsRequireSession(t *testing.T) {
	e := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{"GET", "/users"},
		{"GET", "/users/friends"},
		{"POST", "/users/friend-request/" + uuid.NewString()},
		{"PUT", "/users/friend-request/" + uuid.NewString() + "/accept"},
		{"GET", "/users/friend-requests"},
		{"GET", "/users/outgoing-friend-requests"},
		{"GET", "/chat/token"},
		{"GET", "/auth/me"},
		{"POST", "/auth/onboarding"},
	} {
		w := e.do(route.method, route.path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 without session, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestOnboarding(t *testing.T) {
	e := newTestEnv(t)
	_, aliceTok := e.createUser(t, "alice", false)
	_, bobTok := e.createUser(t, "bob", true)

	// alice is invisible to bob until onboarded
	w := e.do("GET", "/users", bobTok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var recs []models.PublicProfile
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("failed to decode recommendations: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no recommendations before onboarding, got %d", len(recs))
	}

	// missing fields
	w = e.do("POST", "/auth/onboarding", aliceTok, `{"fullName":"Alice","bio":"hi"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete onboarding, got %d", w.Code)
	}

	body := `{"fullName":"Alice","bio":"bonjour","nativeLanguage":"english","learningLanguage":"french","location":"Lyon"}`
	w = e.do("POST", "/auth/onboarding", aliceTok, body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 onboarding, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do("GET", "/users", bobTok, "")
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("failed to decode recommendations: %v", err)
	}
	if len(recs) != 1 || recs[0].NativeLanguage != "english" {
		t.Fatalf("expected onboarded alice in recommendations, got %+v", recs)
	}
}

// TestFriendRequestFlow walks the whole relationship lifecycle over HTTP.
func TestFriendRequestFlow(t *testing.T) {
	e := newTestEnv(t)
	alice, aliceTok := e.createUser(t, "alice", true)
	bob, bobTok := e.createUser(t, "bob", true)

	// recommendation includes the other user
	w := e.do("GET", "/users", aliceTok, "")
	var recs []models.PublicProfile
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("failed to decode recommendations: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != bob.ID {
		t.Fatalf("expected bob recommended to alice, got %+v", recs)
	}

	// self-request
	w = e.do("POST", "/users/friend-request/"+alice.ID.String(), aliceTok, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self request, got %d", w.Code)
	}

	// unknown recipient
	w = e.do("POST", "/users/friend-request/"+uuid.NewString(), aliceTok, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown recipient, got %d", w.Code)
	}

	// send
	w = e.do("POST", "/users/friend-request/"+bob.ID.String(), aliceTok, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var req models.FriendRequest
	if err := json.Unmarshal(w.Body.Bytes(), &req); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	if req.SenderID != alice.ID || req.RecipientID != bob.ID || req.Status != models.RequestStatusPending {
		t.Fatalf("unexpected request record: %+v", req)
	}

	// duplicate, both directions
	w = e.do("POST", "/users/friend-request/"+bob.ID.String(), aliceTok, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate request, got %d", w.Code)
	}
	w = e.do("POST", "/users/friend-request/"+alice.ID.String(), bobTok, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reverse duplicate, got %d", w.Code)
	}

	// lists are expanded
	w = e.do("GET", "/users/outgoing-friend-requests", aliceTok, "")
	var outgoing []models.ExpandedFriendRequest
	if err := json.Unmarshal(w.Body.Bytes(), &outgoing); err != nil {
		t.Fatalf("failed to decode outgoing: %v", err)
	}
	if len(outgoing) != 1 || outgoing[0].Recipient.ID != bob.ID || outgoing[0].Recipient.FullName != "bob" {
		t.Fatalf("unexpected outgoing list: %+v", outgoing)
	}
	w = e.do("GET", "/users/friend-requests", bobTok, "")
	var incoming []models.ExpandedFriendRequest
	if err := json.Unmarshal(w.Body.Bytes(), &incoming); err != nil {
		t.Fatalf("failed to decode incoming: %v", err)
	}
	if len(incoming) != 1 || incoming[0].Sender.ID != alice.ID {
		t.Fatalf("unexpected incoming list: %+v", incoming)
	}

	// the sender cannot accept their own request
	w = e.do("PUT", "/users/friend-request/"+req.ID.String()+"/accept", aliceTok, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for sender accept, got %d: %s", w.Code, w.Body.String())
	}

	// the recipient accepts
	w = e.do("PUT", "/users/friend-request/"+req.ID.String()+"/accept", bobTok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 accept, got %d: %s", w.Code, w.Body.String())
	}
	if msg := decodeMessage(t, w); msg != "Friend request accepted" {
		t.Fatalf("unexpected accept message: %q", msg)
	}

	// both friend lists are mutated
	for _, c := range []struct {
		token  string
		friend uuid.UUID
	}{{aliceTok, bob.ID}, {bobTok, alice.ID}} {
		w = e.do("GET", "/users/friends", c.token, "")
		var friends []models.PublicProfile
		if err := json.Unmarshal(w.Body.Bytes(), &friends); err != nil {
			t.Fatalf("failed to decode friends: %v", err)
		}
		if len(friends) != 1 || friends[0].ID != c.friend {
			t.Fatalf("unexpected friends list: %+v", friends)
		}
	}

	// ledger is empty and a repeat accept observes 404
	w = e.do("GET", "/users/friend-requests", bobTok, "")
	if err := json.Unmarshal(w.Body.Bytes(), &incoming); err != nil {
		t.Fatalf("failed to decode incoming: %v", err)
	}
	if len(incoming) != 0 {
		t.Fatalf("expected empty incoming list, got %+v", incoming)
	}
	w = e.do("PUT", "/users/friend-request/"+req.ID.String()+"/accept", bobTok, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for repeat accept, got %d", w.Code)
	}

	// friends no longer appear in recommendations
	w = e.do("GET", "/users", aliceTok, "")
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("failed to decode recommendations: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no recommendations after friending, got %+v", recs)
	}

	// sending to an existing friend is a conflict
	w = e.do("POST", "/users/friend-request/"+bob.ID.String(), aliceTok, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for already-friends, got %d", w.Code)
	}
}

func TestChatToken(t *testing.T) {
	e := newTestEnv(t)
	alice, aliceTok := e.createUser(t, "alice", true)

	w := e.do("GET", "/chat/token", aliceTok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode token response: %v", err)
	}
	if body["token"] != "chat-token-"+alice.ID.String() {
		t.Fatalf("unexpected token: %q", body["token"])
	}

	// adapter failure collapses to a generic 500
	e.realtime.failToken = true
	w = e.do("GET", "/chat/token", aliceTok, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if msg := decodeMessage(t, w); msg != "Internal Server Error" {
		t.Fatalf("internal errors must not leak details, got %q", msg)
	}
}
