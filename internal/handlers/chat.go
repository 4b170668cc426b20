// internal/handlers/chat.go
package handlers

import (
	"net/http"

	"github.com/peerlingo/peerlingo/internal/middleware"
)

// ChatTokenHandler mints a platform credential scoped to the caller. The
// adapter is pure translation; there is no state to get out of sync and no
// retry, a failure surfaces immediately.
func (s *Server) ChatTokenHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	token, err := s.Realtime.CreateToken(user.ID.String())
	if err != nil {
		s.internalError(w, "failed to create chat token", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
