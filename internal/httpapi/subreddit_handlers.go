package httpapi

import (
	"net/http"

	"github.com/goliatone/go-forum-cache/forum"
	"github.com/goliatone/go-forum-cache/service"
)

func (s *Server) listSubreddits(w http.ResponseWriter, r *http.Request) {
	list, err := s.views.AllSubreddits(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeView(w, r, list)
}

func (s *Server) getSubreddit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.views.SubredditByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeView(w, r, view)
}

func (s *Server) listSubredditPosts(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.views.PostsInSubreddit(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeView(w, r, list)
}

func (s *Server) createSubreddit(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var in service.SubredditInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.forum.CreateSubreddit(r.Context(), actor, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) editSubreddit(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch service.SubredditPatch
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.forum.EditSubreddit(r.Context(), actor, id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteSubreddit(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.forum.DeleteSubreddit(r.Context(), actor, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusAccepted, "Subreddit deleted")
}

func (s *Server) joinSubreddit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		s.writeError(w, r, forum.ErrUnauthorized)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.forum.JoinSubreddit(r.Context(), actor, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
