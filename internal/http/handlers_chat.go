package http

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"

	"finbot/internal/chat"
	"finbot/internal/core"
	"finbot/internal/log"
)

// SessionCookie carries the conversation id.
const SessionCookie = "finbot_session"

const sessionMaxAge = 30 * 24 * 60 * 60

type sendMessageRequest struct {
	Text string `json:"text"`
}

type transcriptResponse struct {
	Message     *core.Message  `json:"message,omitempty"`
	Messages    []core.Message `json:"messages"`
	Typing      bool           `json:"typing"`
	Suggestions []string       `json:"suggestions"`
}

// session resolves the caller's session, issuing a new cookie when the
// request has none or carries a malformed id.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *chat.Session {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, perr := uuid.Parse(c.Value); perr == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			MaxAge:   sessionMaxAge,
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}

	sess, created := s.sessions.Session(id)
	if created {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Chat session started", log.FieldSessionID, id)
	}
	return sess
}

func transcript(sess *chat.Session) transcriptResponse {
	return transcriptResponse{
		Messages:    sess.Messages(),
		Typing:      sess.Typing(),
		Suggestions: sess.Suggestions(),
	}
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(transcript(s.session(w, r))).Write(w)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	sess := s.session(w, r)
	reply, err := sess.SendMessage(r.Context(), sanitizeInput(req.Text))
	if errors.Is(err, chat.ErrEmptyMessage) {
		BadRequestError("El mensaje está vacío").Write(w)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Message not answered",
			log.FieldSessionID, sess.ID(),
			log.FieldError, err)
		InternalServerError("No se pudo procesar el mensaje").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.messages, 1)

	resp := transcript(sess)
	resp.Message = &reply
	NewResponse().JSON(resp).Write(w)
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Clear()
	NewResponse().JSON(transcript(sess)).Write(w)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string][]string{
		"suggestions": s.session(w, r).Suggestions(),
	}).Write(w)
}
