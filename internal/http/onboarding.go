package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"reflectify/server/internal/gate"
	"reflectify/server/internal/model"
	"reflectify/server/internal/onboarding"
)

type questionnaireResponse struct {
	State string            `json:"state"`
	Role  string            `json:"role"`
	Steps []onboarding.Step `json:"steps"`
}

// renderQuestionnaire is what the onboarding gate shows instead of the
// withheld screen.
func (s *Server) renderQuestionnaire(w http.ResponseWriter, sess gate.Session) {
	role := sess.Profile.Role
	steps, err := onboarding.Steps(role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, questionnaireResponse{
		State: gate.OnboardingNeeded.String(),
		Role:  string(role),
		Steps: steps,
	})
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	profile, err := s.store.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	}
	sess := gate.Session{UserID: claims.UserID, Profile: &profile}

	state, err := gate.ResolveOnboarding(r.Context(), s.store, sess)
	if err != nil {
		s.logger.Warn("onboarding lookup failed, failing open to questionnaire",
			zap.String("user_id", claims.UserID), zap.Error(err))
	}
	if state == gate.OnboardingNeeded {
		s.renderQuestionnaire(w, sess)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": state.String()})
}

type submitOnboardingRequest struct {
	SchoolID string            `json:"schoolId"`
	Answers  map[string]string `json:"answers"`
}

func (s *Server) handleSubmitOnboarding(survey model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		profile, err := s.store.GetProfile(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}
		if profile.Role == model.RoleAdmin {
			writeError(w, http.StatusBadRequest, "no_onboarding_required")
			return
		}
		if profile.Role != survey {
			writeError(w, http.StatusForbidden, "wrong_survey")
			return
		}

		var req submitOnboardingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		sub := onboarding.Submission{SchoolID: req.SchoolID, Answers: req.Answers}
		if err := onboarding.Submit(r.Context(), s.store, claims.UserID, survey, sub); err != nil {
			var coded *onboarding.Error
			if errors.As(err, &coded) {
				switch coded.Code {
				case onboarding.ErrSaveFailed, onboarding.ErrProfileUpdate:
					// Transient: the gate is not advanced, the user may retry.
					writeError(w, http.StatusServiceUnavailable, coded.Code)
				default:
					writeError(w, http.StatusBadRequest, coded.Code)
				}
				return
			}
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}

		// Profile refresh is awaited before reporting complete, so the
		// school attached during submission is visible immediately.
		user, err := s.store.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		refreshed, err := s.store.GetProfile(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusNotFound, "profile_not_found")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"state":   gate.OnboardingComplete.String(),
			"profile": mapProfileSummary(user, refreshed),
		})
	}
}
