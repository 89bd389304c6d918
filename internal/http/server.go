package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reflectify/server/internal/config"
	"reflectify/server/internal/gate"
	"reflectify/server/internal/insights"
	"reflectify/server/internal/model"
	"reflectify/server/internal/repository"
	"reflectify/server/internal/telemetry"
)

// Store is the persistence surface the handlers consume. The pgx-backed
// repository satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, userID string) (model.User, error)
	CreateUserWithProfile(ctx context.Context, user model.User, profile model.Profile) error
	GetProfile(ctx context.Context, userID string) (model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update repository.ProfileUpdate) (model.Profile, error)
	AttachSchool(ctx context.Context, userID, schoolID string) error

	CreateRefreshSession(ctx context.Context, session model.RefreshSession) error
	GetRefreshSession(ctx context.Context, tokenHash string) (model.RefreshSession, error)
	RevokeRefreshSession(ctx context.Context, sessionID string, revokedAt time.Time) error
	RevokeRefreshSessionsByUser(ctx context.Context, userID string, revokedAt time.Time) error

	HasOnboardingRecord(ctx context.Context, userID string, survey model.Role) (bool, error)
	CreateOnboardingRecord(ctx context.Context, record model.OnboardingRecord) (bool, error)

	CreateJournalEntry(ctx context.Context, entry model.JournalEntry) error
	ListJournalEntries(ctx context.Context, userID string, since time.Time, limit int) ([]model.JournalEntry, error)
	CreateMoodCheckin(ctx context.Context, checkin model.MoodCheckin) error
	ListMoodCheckins(ctx context.Context, userID string, since time.Time) ([]model.MoodCheckin, error)
	ListSchoolMoodCheckins(ctx context.Context, schoolID string, since time.Time) ([]model.MoodCheckin, error)
	CreateChatMessage(ctx context.Context, message model.ChatMessage) error
	SetChatMessageFlagged(ctx context.Context, messageID string, flagged bool) error
	ListChatMessages(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
	ListFlaggedChatMessages(ctx context.Context, schoolID string, limit int) ([]model.ChatMessage, error)
	CountProfilesBySchool(ctx context.Context, schoolID string) (map[model.Role]int, error)
}

// InsightService is the generative-text collaborator. A nil service means
// the feature degrades, never that a request fails hard.
type InsightService interface {
	JournalInsight(ctx context.Context, entries []model.JournalEntry) (insights.JournalInsight, error)
	ChatReply(ctx context.Context, history []model.ChatMessage, message string) (insights.ChatReply, error)
	MindfulnessActivities(ctx context.Context, mood string) ([]insights.Activity, error)
}

type Server struct {
	cfg      config.Config
	store    Store
	insights InsightService
	visits   telemetry.Store
	routes   *gate.Table
	logger   *zap.Logger
}

func NewServer(cfg config.Config, store Store, insightService InsightService, visits telemetry.Store, logger *zap.Logger) (*Server, error) {
	routes, err := gate.NewTable([]gate.Route{
		{Path: "/", Feature: "dashboard"},
		{Path: "/journal", Feature: "journal", Allowed: []model.Role{model.RoleStudent}},
		{Path: "/chat", Feature: "chat", Allowed: []model.Role{model.RoleStudent}},
		{Path: "/mindfulness", Feature: "mindfulness", Allowed: []model.Role{model.RoleStudent, model.RoleTeacher}},
		{Path: "/teacher", Feature: "teacher_dashboard", Allowed: []model.Role{model.RoleTeacher, model.RoleAdmin}},
		{Path: "/analytics", Feature: "analytics", Allowed: []model.Role{model.RoleTeacher, model.RoleAdmin}},
	})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		insights: insightService,
		visits:   visits,
		routes:   routes,
		logger:   logger,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/login", s.handleLoginPage)
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.With(s.authMiddleware).Post("/auth/logout", s.handleLogout)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)
	r.With(s.authMiddleware).Patch("/auth/me", s.handleUpdateMe)

	r.With(s.authMiddleware).Get("/onboarding/status", s.handleOnboardingStatus)
	r.With(s.authMiddleware).Post("/onboarding/student", s.handleSubmitOnboarding(model.RoleStudent))
	r.With(s.authMiddleware).Post("/onboarding/teacher", s.handleSubmitOnboarding(model.RoleTeacher))

	r.With(s.authMiddleware).Get("/features/{feature}/splash", s.handleSplash)

	// Page routes run the full gate chain: access gate, then onboarding
	// gate, then the handler. Navigation into a feature is observed by the
	// visit instrumentation after the gates pass.
	r.With(s.pageGate("/")).Get("/", s.handleRoot)

	r.With(s.pageGate("/journal"), s.observeVisit("journal")).Get("/journal", s.handleJournalPage)
	r.With(s.pageGate("/journal")).Get("/journal/entries", s.handleJournalPage)
	r.With(s.pageGate("/journal")).Post("/journal/entries", s.handleCreateJournalEntry)
	r.With(s.pageGate("/journal")).Post("/journal/checkins", s.handleCreateCheckin)
	r.With(s.pageGate("/journal")).Get("/journal/insight", s.handleJournalInsight)

	r.With(s.pageGate("/chat"), s.observeVisit("chat")).Get("/chat", s.handleChatPage)
	r.With(s.pageGate("/chat")).Post("/chat/messages", s.handleChatMessage)

	r.With(s.pageGate("/mindfulness"), s.observeVisit("mindfulness")).Get("/mindfulness", s.handleMindfulness)
	r.With(s.pageGate("/mindfulness")).Get("/mindfulness/recommendations", s.handleMindfulness)

	r.With(s.pageGate("/teacher"), s.observeVisit("teacher_dashboard")).Get("/teacher", s.handleTeacherDashboard)
	r.With(s.pageGate("/analytics"), s.observeVisit("analytics")).Get("/analytics", s.handleAnalytics)
	r.With(s.pageGate("/analytics")).Get("/analytics/summary", s.handleAnalytics)

	return r
}

type sessionKey struct{}

func sessionFromContext(ctx context.Context) gate.Session {
	sess, _ := ctx.Value(sessionKey{}).(gate.Session)
	return sess
}

// resolveSession turns the bearer token into a gate.Session. A missing or
// invalid token is an anonymous session; a profile-lookup failure leaves the
// profile unresolved so the gates treat the session as still loading.
func (s *Server) resolveSession(r *http.Request) gate.Session {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return gate.Session{}
	}
	claims, err := parseToken(s.cfg.JWTSecret, token)
	if err != nil {
		return gate.Session{}
	}

	sess := gate.Session{UserID: claims.UserID}
	profile, err := s.store.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Identity without a profile: treat as anonymous.
			return gate.Session{}
		}
		s.logger.Warn("profile lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return sess
	}
	sess.Profile = &profile
	return sess
}

// pageGate composes the access gate and the onboarding gate for one route.
func (s *Server) pageGate(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := s.routes.Lookup(path)
			if !ok {
				writeError(w, http.StatusNotFound, "unknown_route")
				return
			}

			sess := s.resolveSession(r)
			switch dec := gate.ResolveAccess(sess, route); dec.Action {
			case gate.ActionWait:
				writeJSON(w, http.StatusOK, map[string]string{"state": "loading"})
				return
			case gate.ActionRedirect:
				http.Redirect(w, r, dec.Target, http.StatusFound)
				return
			}

			state, err := gate.ResolveOnboarding(r.Context(), s.store, sess)
			if err != nil {
				s.logger.Warn("onboarding lookup failed, failing open to questionnaire",
					zap.String("user_id", sess.UserID), zap.Error(err))
			}
			switch state {
			case gate.OnboardingLoading:
				writeJSON(w, http.StatusOK, map[string]string{"state": "loading"})
				return
			case gate.OnboardingNeeded:
				s.renderQuestionnaire(w, sess)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// observeVisit records navigation into a feature. Failures are logged and
// swallowed: telemetry must never affect the response.
func (s *Server) observeVisit(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFromContext(r.Context())
			if sess.UserID != "" && s.visits != nil {
				if err := s.visits.RecordVisit(r.Context(), sess.UserID, feature, time.Now().UTC()); err != nil {
					s.logger.Warn("visit record failed", zap.String("feature", feature), zap.Error(err))
				}
				telemetry.CountVisitMetric(feature)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := parseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"page": "login"})
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ""
}
