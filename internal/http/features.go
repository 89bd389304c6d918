package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"reflectify/server/internal/analytics"
	"reflectify/server/internal/gate"
	"reflectify/server/internal/insights"
	"reflectify/server/internal/model"
	"reflectify/server/internal/telemetry"
)

func daysParam(r *http.Request, fallback, max int) int {
	days := fallback
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	if days > max {
		days = max
	}
	return days
}

// handleRoot is the dashboard selector: after both gates pass, exactly one
// role dashboard renders.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess.Profile == nil {
		writeJSON(w, http.StatusOK, map[string]string{"state": "loading"})
		return
	}

	dashboard, err := gate.SelectDashboard(sess.Profile.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unknown_role")
		return
	}

	switch dashboard {
	case gate.DashboardStudent:
		s.renderStudentDashboard(w, r, sess)
	case gate.DashboardTeacher:
		s.renderTeacherOverview(w, r, sess)
	case gate.DashboardAdmin:
		s.renderAdminDashboard(w, r, sess)
	}
}

func (s *Server) renderStudentDashboard(w http.ResponseWriter, r *http.Request, sess gate.Session) {
	since := time.Now().UTC().AddDate(0, 0, -14)
	checkins, err := s.store.ListMoodCheckins(r.Context(), sess.UserID, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dashboard":    string(gate.DashboardStudent),
		"trend":        analytics.ClassifyTrend(analytics.Scores(checkins)),
		"moodCounts":   analytics.CountMoods(checkins),
		"averageScore": analytics.AverageScore(checkins),
		"checkins":     len(checkins),
	})
}

func (s *Server) renderTeacherOverview(w http.ResponseWriter, r *http.Request, sess gate.Session) {
	payload := map[string]interface{}{"dashboard": string(gate.DashboardTeacher)}
	if sess.Profile.SchoolID != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		checkins, err := s.store.ListSchoolMoodCheckins(r.Context(), *sess.Profile.SchoolID, since)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		payload["classMoodCounts"] = analytics.CountMoods(checkins)
		payload["classAverageScore"] = analytics.AverageScore(checkins)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) renderAdminDashboard(w http.ResponseWriter, r *http.Request, sess gate.Session) {
	payload := map[string]interface{}{"dashboard": string(gate.DashboardAdmin)}
	if sess.Profile.SchoolID != nil {
		counts, err := s.store.CountProfilesBySchool(r.Context(), *sess.Profile.SchoolID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		payload["profileCounts"] = counts
	}
	writeJSON(w, http.StatusOK, payload)
}

type journalEntryResponse struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Mood      *string `json:"mood,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

func mapJournalEntry(entry model.JournalEntry) journalEntryResponse {
	return journalEntryResponse{
		ID:        entry.ID,
		Content:   entry.Content,
		Mood:      entry.Mood,
		CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleJournalPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	days := daysParam(r, 30, 365)
	since := time.Now().UTC().AddDate(0, 0, -days)

	entries, err := s.store.ListJournalEntries(r.Context(), sess.UserID, since, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]journalEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, mapJournalEntry(entry))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feature": "journal", "entries": resp})
}

type createEntryRequest struct {
	Content string  `json:"content"`
	Mood    *string `json:"mood,omitempty"`
}

func (s *Server) handleCreateJournalEntry(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req createEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "missing_content")
		return
	}
	if len(req.Content) > 5000 {
		writeError(w, http.StatusBadRequest, "content_too_long")
		return
	}

	entry := model.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Content:   req.Content,
		Mood:      req.Mood,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateJournalEntry(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	writeJSON(w, http.StatusCreated, mapJournalEntry(entry))
}

type createCheckinRequest struct {
	Score int    `json:"score"`
	Mood  string `json:"mood"`
}

func (s *Server) handleCreateCheckin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req createCheckinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Score < 1 || req.Score > 5 {
		writeError(w, http.StatusBadRequest, "invalid_score")
		return
	}
	req.Mood = strings.TrimSpace(strings.ToLower(req.Mood))
	if req.Mood == "" {
		writeError(w, http.StatusBadRequest, "missing_mood")
		return
	}

	checkin := model.MoodCheckin{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Score:     req.Score,
		Mood:      req.Mood,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateMoodCheckin(r.Context(), checkin); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": checkin.ID, "status": "recorded"})
}

func (s *Server) handleJournalInsight(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if s.insights == nil {
		writeError(w, http.StatusServiceUnavailable, "insights_unavailable")
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -14)
	entries, err := s.store.ListJournalEntries(r.Context(), sess.UserID, since, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusBadRequest, "no_recent_entries")
		return
	}

	insight, err := s.insights.JournalInsight(r.Context(), entries)
	if err != nil {
		s.logger.Warn("journal insight failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "insights_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, insight)
}

type chatMessageResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Flagged   bool   `json:"flagged"`
	CreatedAt string `json:"createdAt"`
}

func mapChatMessage(message model.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:        message.ID,
		Sender:    message.Sender,
		Content:   message.Content,
		Flagged:   message.Flagged,
		CreatedAt: message.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	messages, err := s.store.ListChatMessages(r.Context(), sess.UserID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]chatMessageResponse, 0, len(messages))
	for _, message := range messages {
		resp = append(resp, mapChatMessage(message))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feature": "chat", "messages": resp})
}

type chatRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "missing_content")
		return
	}

	// The student's message is persisted before the generative call so a
	// service failure never loses what they wrote.
	message := model.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Sender:    model.ChatSenderUser,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateChatMessage(r.Context(), message); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	if s.insights == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": mapChatMessage(message),
			"notice":  "insights_unavailable",
		})
		return
	}

	history, err := s.store.ListChatMessages(r.Context(), sess.UserID, 20)
	if err != nil {
		history = nil
	}
	reply, err := s.insights.ChatReply(r.Context(), history, req.Content)
	if err != nil {
		s.logger.Warn("chat reply failed", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": mapChatMessage(message),
			"notice":  "insights_unavailable",
		})
		return
	}

	if reply.Flagged {
		if err := s.store.SetChatMessageFlagged(r.Context(), message.ID, true); err != nil {
			s.logger.Warn("flag update failed", zap.String("message_id", message.ID), zap.Error(err))
		}
		message.Flagged = true
	}

	assistant := model.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Sender:    model.ChatSenderAssistant,
		Content:   reply.Reply,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateChatMessage(r.Context(), assistant); err != nil {
		s.logger.Warn("assistant message save failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": mapChatMessage(message),
		"reply":   mapChatMessage(assistant),
	})
}

func (s *Server) handleMindfulness(w http.ResponseWriter, r *http.Request) {
	mood := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("mood")))
	if mood == "" {
		mood = "stressed"
	}

	if s.insights != nil {
		activities, err := s.insights.MindfulnessActivities(r.Context(), mood)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"feature":    "mindfulness",
				"source":     "generated",
				"activities": activities,
			})
			return
		}
		s.logger.Warn("mindfulness recommendations failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"feature":    "mindfulness",
		"source":     "fallback",
		"activities": insights.FallbackActivities(),
	})
}

func (s *Server) handleTeacherDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	payload := map[string]interface{}{"feature": "teacher_dashboard"}

	if sess.Profile.SchoolID != nil {
		schoolID := *sess.Profile.SchoolID
		since := time.Now().UTC().AddDate(0, 0, -7)

		checkins, err := s.store.ListSchoolMoodCheckins(r.Context(), schoolID, since)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		flagged, err := s.store.ListFlaggedChatMessages(r.Context(), schoolID, 20)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		flaggedResp := make([]chatMessageResponse, 0, len(flagged))
		for _, message := range flagged {
			flaggedResp = append(flaggedResp, mapChatMessage(message))
		}

		payload["classMoodCounts"] = analytics.CountMoods(checkins)
		payload["classAverageScore"] = analytics.AverageScore(checkins)
		payload["flaggedMessages"] = flaggedResp
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess.Profile.SchoolID == nil {
		writeError(w, http.StatusBadRequest, "no_school")
		return
	}

	days := daysParam(r, 7, 90)
	since := time.Now().UTC().AddDate(0, 0, -days)
	checkins, err := s.store.ListSchoolMoodCheckins(r.Context(), *sess.Profile.SchoolID, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"feature":      "analytics",
		"windowDays":   days,
		"trend":        analytics.ClassifyTrend(analytics.Scores(checkins)),
		"moodCounts":   analytics.CountMoods(checkins),
		"averageScore": analytics.AverageScore(checkins),
		"checkins":     len(checkins),
	})
}

// handleSplash reports how long the feature splash overlay should display
// for this user, based on the local visit counters. Purely cosmetic.
func (s *Server) handleSplash(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	feature := chi.URLParam(r, "feature")
	if feature == "" {
		writeError(w, http.StatusBadRequest, "missing_feature")
		return
	}
	if s.visits == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"feature":    feature,
			"durationMs": telemetry.SplashFull.Milliseconds(),
		})
		return
	}

	count, err := s.visits.VisitCount(r.Context(), claims.UserID, feature)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	first, _, err := s.visits.FirstVisit(r.Context(), claims.UserID, feature)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	duration := telemetry.SplashDuration(count, first, time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"feature":    feature,
		"visits":     count,
		"durationMs": duration.Milliseconds(),
	})
}
