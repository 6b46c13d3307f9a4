package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"yuchat/internal/auth"
	"yuchat/internal/chat"
	"yuchat/internal/repo"
)

// Server routes validated JSON payloads to the chat services and relays
// their results. It trusts the identity the auth middleware injected.
type Server struct {
	Users    *repo.UserRepo
	Resolver *chat.Resolver
	Messages *chat.Messages
	Calls    *chat.Calls

	Sessions    *auth.SessionStore
	TokenSecret string
	Log         *zap.Logger
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/auth/register", s.handleRegister)
	mux.HandleFunc("/v1/auth/login", s.handleLogin)
	mux.HandleFunc("/v1/conversations", s.handleConversations)
	mux.HandleFunc("/v1/conversations/direct", s.handleDirect)
	mux.HandleFunc("/v1/conversations/group", s.handleGroup)
	mux.HandleFunc("/v1/conversations/read", s.handleMarkRead)
	mux.HandleFunc("/v1/messages", s.handleMessages)
	mux.HandleFunc("/v1/messages/delete", s.handleDeleteMessage)
	mux.HandleFunc("/v1/calls", s.handleCalls)
	mux.HandleFunc("/v1/calls/status", s.handleCallStatus)
}

// Credential hashing happens client-of-this-boundary; register and login
// move opaque hashes, never plaintext.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var q struct {
		Username     string `json:"username"`
		Email        string `json:"email"`
		PasswordHash string `json:"passwordHash"`
	}
	if err := decode(r, &q); err != nil {
		writeErr(w, fmt.Errorf("%w: %v", chat.ErrValidation, err))
		return
	}
	q.Username = strings.TrimSpace(q.Username)
	q.Email = strings.TrimSpace(q.Email)
	if q.Username == "" || q.Email == "" || q.PasswordHash == "" {
		writeErr(w, fmt.Errorf("%w: username, email and passwordHash required", chat.ErrValidation))
		return
	}
	u, err := s.Users.Create(r.Context(), q.Username, q.Email, q.PasswordHash)
	if err != nil {
		writeErr(w, err)
		return
	}
	token, err := auth.IssueToken(u.ID, s.TokenSecret)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.Sessions.Put(r.Context(), token, u.ID); err != nil {
		s.Log.Warn("session store failed", zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var q struct {
		Username     string `json:"username"`
		PasswordHash string `json:"passwordHash"`
	}
	if err := decode(r, &q); err != nil {
		writeErr(w, fmt.Errorf("%w: %v", chat.ErrValidation, err))
		return
	}
	u, err := s.Users.GetByUsername(r.Context(), strings.TrimSpace(q.Username))
	if err != nil {
		writeErr(w, chat.ErrNotFound)
		return
	}
	if q.PasswordHash == "" || u.PasswordHash != q.PasswordHash {
		writeErr(w, chat.ErrNotFound)
		return
	}
	token, err := auth.IssueToken(u.ID, s.TokenSecret)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.Sessions.Put(r.Context(), token, u.ID); err != nil {
		s.Log.Warn("session store failed", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	uid := auth.UIDFromContext(r.Context())
	out, err := s.Resolver.ListForUser(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	uid := auth.UIDFromContext(r.Context())
	var q struct {
		PeerID int64 `json:"peerId"`
	}
	if err := decode(r, &q); err != nil || q.PeerID == 0 {
		writeErr(w, fmt.Errorf("%w: peerId required", chat.ErrValidation))
		return
	}
	out, err := s.Resolver.GetOrCreateDirect(r.Context(), uid, q.PeerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	uid := auth.UIDFromContext(r.Context())
	var q struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		MemberIDs   []int64 `json:"memberIds"`
	}
	if err := decode(r, &q); err != nil {
		writeErr(w, fmt.Errorf("%w: %v", chat.ErrValidation, err))
		return
	}
	out, err := s.Resolver.CreateGroup(r.Context(), uid, q.Name, q.Description, q.MemberIDs)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	uid := auth.UIDFromContext(r.Context())
	var q struct {
		ConversationID int64 `json:"conversationId"`
		MessageID      int64 `json:"messageId"`
	}
	if err := decode(r, &q); err != nil || q.ConversationID == 0 {
		writeErr(w, fmt.Errorf("%w: conversationId required", chat.ErrValidation))
		return
	}
	if err := s.Resolver.MarkRead(r.Context(), uid, q.ConversationID, q.MessageID); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMessages serves history (GET) and send (POST).
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	uid := auth.UIDFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		convID, _ := strconv.ParseInt(r.URL.Query().Get("conversation_id"), 10, 64)
		if convID == 0 {
			writeErr(w, fmt.Errorf("%w: conversation_id required", chat.ErrValidation))
			return
		}
		if err := s.Resolver.RequireMember(r.Context(), convID, uid); err != nil {
			writeErr(w, err)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		out, err := s.Messages.History(r.Context(), convID, limit, offset)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var q struct {
			ConversationID int64 `json:"conversationId"`
			chat.SendBody
		}
		if err := decode(r, &q); err != nil {
			writeErr(w, fmt.Errorf("%w: %v", chat.ErrValidation, err))
			return
		}
		if q.ConversationID == 0 {
			writeErr(w, fmt.Errorf("%w: conversationId required", chat.ErrValidation))
			return
		}
		if err := s.Resolver.RequireMember(r.Context(), q.ConversationID, uid); err != nil {
			writeErr(w, err)
			return
		}
		out, err := s.Messages.Send(r.Context(), q.ConversationID, uid, q.SendBody)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	uid := auth.UIDFromContext(r.Context())
	var q struct {
		MessageID int64 `json:"messageId"`
	}
	if err := decode(r, &q); err != nil || q.MessageID == 0 {
		writeErr(w, fmt.Errorf("%w: messageId required", chat.ErrValidation))
		return
	}
	if err := s.Messages.Delete(r.Context(), q.MessageID, uid); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	uid := auth.UIDFromContext(r.Context())
	var q struct {
		ConversationID int64  `json:"conversationId"`
		Kind           string `json:"kind"`
	}
	if err := decode(r, &q); err != nil || q.ConversationID == 0 {
		writeErr(w, fmt.Errorf("%w: conversationId required", chat.ErrValidation))
		return
	}
	if err := s.Resolver.RequireMember(r.Context(), q.ConversationID, uid); err != nil {
		writeErr(w, err)
		return
	}
	out, err := s.Calls.Start(r.Context(), q.ConversationID, uid, q.Kind)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	uid := auth.UIDFromContext(r.Context())
	var q struct {
		CallID int64  `json:"callId"`
		Status string `json:"status"`
	}
	if err := decode(r, &q); err != nil || q.CallID == 0 || q.Status == "" {
		writeErr(w, fmt.Errorf("%w: callId and status required", chat.ErrValidation))
		return
	}
	call, err := s.Calls.Get(r.Context(), q.CallID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.Resolver.RequireMember(r.Context(), call.ConversationID, uid); err != nil {
		writeErr(w, err)
		return
	}
	out, err := s.Calls.UpdateStatus(r.Context(), q.CallID, q.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
