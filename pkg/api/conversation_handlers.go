package api

import (
	"net/http"

	"github.com/kasugai-cloud/aichat/pkg/httputil"
	"github.com/kasugai-cloud/aichat/pkg/middleware"
)

// listConversations handles GET /conversations
func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	list, err := s.chat.ListConversations(r.Context(), actor.UserID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"conversations": list})
}

// getConversation handles GET /conversations/{id}
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	conversationID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	conv, messages, err := s.chat.GetConversation(r.Context(), conversationID, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"conversation": conv,
		"messages":     messages,
	})
}

// deleteConversation handles DELETE /conversations/{id}
func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	conversationID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.chat.DeleteConversation(r.Context(), conversationID, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"conversationId": conversationID, "status": "deleted"})
}
