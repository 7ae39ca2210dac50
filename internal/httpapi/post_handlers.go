package httpapi

import (
	"net/http"

	"github.com/goliatone/go-forum-cache/service"
)

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.views.AllPosts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeView(w, r, list)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.views.PostByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeView(w, r, view)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	var in service.PostInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.forum.CreatePost(r.Context(), actor, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) editPost(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var patch service.PostPatch
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.forum.EditPost(r.Context(), actor, id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.forum.DeletePost(r.Context(), actor, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusAccepted, "Post deleted")
}

func (s *Server) votePost(delta int) http.HandlerFunc {
	msg := "Up-voted Successfully"
	if delta < 0 {
		msg = "Down-voted Successfully"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := actorFrom(r.Context())
		id, err := idParam(r, "id")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.forum.VotePost(r.Context(), actor, id, delta); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusAccepted, msg)
	}
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	postID, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.CommentInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.forum.AddComment(r.Context(), actor, postID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) editComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	postID, commentID, err := commentParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.CommentInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.forum.EditComment(r.Context(), actor, postID, commentID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	postID, commentID, err := commentParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.forum.DeleteComment(r.Context(), actor, postID, commentID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Comment deleted")
}

func (s *Server) voteComment(delta int) http.HandlerFunc {
	msg := "Up-voted Successfully"
	if delta < 0 {
		msg = "Down-voted Successfully"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := actorFrom(r.Context())
		postID, commentID, err := commentParams(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.forum.VoteComment(r.Context(), actor, postID, commentID, delta); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeMessage(w, http.StatusAccepted, msg)
	}
}

func commentParams(r *http.Request) (int64, int64, error) {
	postID, err := idParam(r, "id")
	if err != nil {
		return 0, 0, err
	}
	commentID, err := idParam(r, "cid")
	if err != nil {
		return 0, 0, err
	}
	return postID, commentID, nil
}
