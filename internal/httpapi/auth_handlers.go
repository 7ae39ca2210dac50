package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/service"
)

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	Expires     time.Time `json:"expires"`
	Username    string    `json:"username"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.forum.RegisterUser(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.forum.Authenticate(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, loginResponse{
		AccessToken: token,
		Expires:     claims.ExpiresAt,
		Username:    user.Username,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		s.writeError(w, r, forum.ErrUnauthorized)
		return
	}
	if err := s.blocklist.Revoke(r.Context(), claims.JTI, claims.ExpiresAt); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("access token revoked", zap.String("jti", claims.JTI), zap.String("username", claims.Username))
	writeMessage(w, http.StatusOK, "Access token revoked")
}

// profile serves the caller's own profile view.
func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		s.writeError(w, r, forum.ErrUnauthorized)
		return
	}
	view, err := s.views.Profile(r.Context(), actor.Username)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeView(w, r, view)
}
