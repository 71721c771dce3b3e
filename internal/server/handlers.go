package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/replaycheck/internal/ir"
	"github.com/roach88/replaycheck/internal/replay"
	"github.com/roach88/replaycheck/internal/session"
)

// Error codes that are not classifier preconditions.
const (
	codeBadRequest = "BAD_REQUEST"
	codeNotFound   = "SESSION_NOT_FOUND"
	codeInternal   = "INTERNAL"
)

// maxMillis is the largest millisecond count a time.Duration can hold.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// millis converts a request field in milliseconds, rejecting values that
// would overflow a time.Duration.
func millis(field string, ms int64) (time.Duration, error) {
	if ms > maxMillis || ms < -maxMillis {
		return 0, fmt.Errorf("%s %d out of range (|value| <= %d)", field, ms, maxMillis)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// respondError maps a session error to a response. Precondition failures
// are 422, a closed session is 404, anything else is 500.
func respondError(c *gin.Context, err error) {
	var ce *replay.ClassifyError
	switch {
	case errors.As(err, &ce):
		abortWithError(c, http.StatusUnprocessableEntity, string(ce.Code), ce.Message)
	case errors.Is(err, session.ErrClosed):
		abortWithError(c, http.StatusNotFound, codeNotFound, "session closed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		abortWithError(c, http.StatusServiceUnavailable, codeInternal, err.Error())
	default:
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, codeInternal, err.Error())
	}
}

// sessionFor resolves the :token parameter or responds 404.
func (s *Server) sessionFor(c *gin.Context) (*session.Session, bool) {
	token := c.Param("token")
	sess, ok := s.lookup(token)
	if !ok {
		abortWithError(c, http.StatusNotFound, codeNotFound, "unknown session "+token)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  ir.ToolVersion,
		Sessions: s.Len(),
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
	}

	policy := s.cfg.Policy
	if req.Policy != "" {
		p, err := replay.ParsePolicy(req.Policy)
		if err != nil {
			respondError(c, err)
			return
		}
		policy = p
	}

	dedupe := s.cfg.Dedupe
	if req.Dedupe != nil {
		dedupe = *req.Dedupe
	}

	delay := s.cfg.StabilityDelay
	if req.StabilityDelayMs != nil {
		if *req.StabilityDelayMs < 0 {
			abortWithError(c, http.StatusBadRequest, codeBadRequest, "stability_delay_ms must not be negative")
			return
		}
		d, err := millis("stability_delay_ms", *req.StabilityDelayMs)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
		delay = d
	}

	sess, err := s.openSession(policy, dedupe, delay)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleListSessions(c *gin.Context) {
	list := SessionList{Sessions: []session.Snapshot{}}
	for _, token := range s.sessions.Keys() {
		// Peek keeps listing from refreshing recency.
		if live, ok := s.sessions.Peek(token); ok {
			list.Sessions = append(list.Sessions, live.sess.Snapshot())
		}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, ok := s.sessionFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	token := c.Param("token")
	if !s.sessions.Remove(token) {
		abortWithError(c, http.StatusNotFound, codeNotFound, "unknown session "+token)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePostEvent(c *gin.Context) {
	sess, ok := s.sessionFor(c)
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if req.TimestampMs == nil {
		respondError(c, replay.NewMissingTimestampError())
		return
	}
	ts, err := millis("timestamp_ms", *req.TimestampMs)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	phase, err := replay.ParsePhase(req.Phase)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := sess.Submit(c.Request.Context(), session.Click(replay.Event{
		Timestamp: ts,
		Phase:     phase,
		ID:        req.ID,
		Target:    req.Target,
	}))
	if err != nil && out.Seq == 0 {
		respondError(c, err)
		return
	}
	if err != nil {
		// Classified but not recorded.
		_ = c.Error(err)
	}

	resp := EventResponse{
		Seq:        out.Seq,
		EventID:    out.Event.ID,
		Suppressed: out.Suppressed,
		WasStable:  out.WasStable,
		Session:    sess.Snapshot(),
	}
	if out.Entry != nil {
		resp.Classification = string(out.Entry.Classification)
		resp.Index = out.Entry.Index
		resp.Time = out.Entry.Time
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePostHandoff(c *gin.Context) {
	sess, ok := s.sessionFor(c)
	if !ok {
		return
	}

	var req HandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if req.TimestampMs == nil {
		respondError(c, replay.NewMissingTimestampError())
		return
	}

	at, err := millis("timestamp_ms", *req.TimestampMs)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	out, err := sess.Submit(c.Request.Context(), session.Handoff(at))
	if err != nil && out.Seq == 0 {
		respondError(c, err)
		return
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handlePostStable(c *gin.Context) {
	sess, ok := s.sessionFor(c)
	if !ok {
		return
	}

	if _, err := sess.Submit(c.Request.Context(), session.Stable()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}
