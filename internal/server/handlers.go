package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"luna/internal/conversation"
)

type sendMessageRequest struct {
	Content string `json:"content"`
}

type createSessionRequest struct {
	// SessionID reopens a persisted session; empty starts a fresh one.
	SessionID string `json:"session_id,omitempty"`
}

type sessionResponse struct {
	SessionID string                 `json:"session_id"`
	Typing    bool                   `json:"typing"`
	Clarify   *conversation.ClarifyInfo `json:"clarify,omitempty"`
	Messages  []conversation.Message `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// httpStatus maps the conversation sentinels onto HTTP codes. ErrBusy is a
// conflict, not a server fault: the client retries after the in-flight
// request settles.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrNotPending),
		errors.Is(err, conversation.ErrNotRetryable),
		errors.Is(err, conversation.ErrNoPlaybook):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondErr(c echo.Context, err error) error {
	return c.JSON(httpStatus(err), errorResponse{Error: err.Error()})
}

func (s *Server) respondSession(c echo.Context, sess *conversation.Session) error {
	return c.JSON(http.StatusOK, sessionResponse{
		SessionID: sess.ID(),
		Typing:    sess.Typing(),
		Clarify:   sess.Clarify(),
		Messages:  sess.Messages(),
	})
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
		}
	}
	sess, err := s.mgr.GetOrCreate(c.Request().Context(), req.SessionID)
	if err != nil {
		return respondErr(c, err)
	}
	return s.respondSession(c, sess)
}

func (s *Server) session(c echo.Context) (*conversation.Session, error) {
	sess, ok := s.mgr.Get(c.Param("sid"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown session")
	}
	return sess, nil
}

func (s *Server) getMessages(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	return s.respondSession(c, sess)
}

func (s *Server) sendMessage(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed body")
	}
	if err := sess.SendMessage(c.Request().Context(), req.Content); err != nil {
		return respondErr(c, err)
	}
	return s.respondSession(c, sess)
}

func (s *Server) retryMessage(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("mid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "message id must be numeric")
	}
	if err := sess.RetryMessage(c.Request().Context(), id); err != nil {
		return respondErr(c, err)
	}
	return s.respondSession(c, sess)
}

func (s *Server) confirmAction(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if err := sess.ConfirmAction(c.Request().Context(), c.Param("aid")); err != nil {
		return respondErr(c, err)
	}
	return s.respondSession(c, sess)
}

func (s *Server) cancelAction(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if err := sess.CancelAction(c.Param("aid")); err != nil {
		return respondErr(c, err)
	}
	return s.respondSession(c, sess)
}

func (s *Server) cancelPlaybook(c echo.Context) error {
	sess, err := s.session(c)
	if err != nil {
		return err
	}
	if err := sess.CancelPlaybook(); err != nil {
		return respondErr(c, err)
	}
	return s.respondSession(c, sess)
}

func (s *Server) getQuickActions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.QuickActions())
}
