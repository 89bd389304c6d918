package http

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"reflectify/server/internal/model"
	"reflectify/server/internal/repository"
)

// memStore backs handler tests without a database. Missing rows surface as
// pgx.ErrNoRows, matching what the pgx-backed store reports.
type memStore struct {
	mu         sync.Mutex
	users      map[string]model.User
	profiles   map[string]model.Profile
	sessions   map[string]model.RefreshSession
	onboarding map[string]map[model.Role]model.OnboardingRecord
	entries    []model.JournalEntry
	checkins   []model.MoodCheckin
	messages   []model.ChatMessage

	onboardingErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[string]model.User),
		profiles:   make(map[string]model.Profile),
		sessions:   make(map[string]model.RefreshSession),
		onboarding: make(map[string]map[model.Role]model.OnboardingRecord),
	}
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, pgx.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, userID string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return model.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *memStore) CreateUserWithProfile(_ context.Context, user model.User, profile model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *memStore) GetProfile(_ context.Context, userID string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return model.Profile{}, pgx.ErrNoRows
	}
	return profile, nil
}

func (m *memStore) UpdateProfile(_ context.Context, userID string, update repository.ProfileUpdate) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return model.Profile{}, pgx.ErrNoRows
	}
	if update.FirstName != nil {
		profile.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		profile.LastName = *update.LastName
	}
	if update.SchoolID != nil {
		profile.SchoolID = update.SchoolID
	}
	profile.UpdatedAt = time.Now().UTC()
	m.profiles[userID] = profile
	return profile, nil
}

func (m *memStore) AttachSchool(_ context.Context, userID, schoolID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	profile.SchoolID = &schoolID
	m.profiles[userID] = profile
	return nil
}

func (m *memStore) CreateRefreshSession(_ context.Context, session model.RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.TokenHash] = session
	return nil
}

func (m *memStore) GetRefreshSession(_ context.Context, tokenHash string) (model.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[tokenHash]
	if !ok {
		return model.RefreshSession{}, pgx.ErrNoRows
	}
	return session, nil
}

func (m *memStore) RevokeRefreshSession(_ context.Context, sessionID string, revokedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, session := range m.sessions {
		if session.ID == sessionID {
			session.RevokedAt = &revokedAt
			m.sessions[hash] = session
		}
	}
	return nil
}

func (m *memStore) RevokeRefreshSessionsByUser(_ context.Context, userID string, revokedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, session := range m.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			session.RevokedAt = &revokedAt
			m.sessions[hash] = session
		}
	}
	return nil
}

func (m *memStore) HasOnboardingRecord(_ context.Context, userID string, survey model.Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onboardingErr != nil {
		return false, m.onboardingErr
	}
	_, ok := m.onboarding[userID][survey]
	return ok, nil
}

func (m *memStore) CreateOnboardingRecord(_ context.Context, record model.OnboardingRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onboardingErr != nil {
		return false, m.onboardingErr
	}
	if m.onboarding[record.UserID] == nil {
		m.onboarding[record.UserID] = make(map[model.Role]model.OnboardingRecord)
	}
	if _, exists := m.onboarding[record.UserID][record.Survey]; exists {
		return false, nil
	}
	m.onboarding[record.UserID][record.Survey] = record
	return true, nil
}

func (m *memStore) CreateJournalEntry(_ context.Context, entry model.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memStore) ListJournalEntries(_ context.Context, userID string, since time.Time, limit int) ([]model.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.JournalEntry
	for _, entry := range m.entries {
		if entry.UserID == userID && !entry.CreatedAt.Before(since) {
			out = append(out, entry)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) CreateMoodCheckin(_ context.Context, checkin model.MoodCheckin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkins = append(m.checkins, checkin)
	return nil
}

func (m *memStore) ListMoodCheckins(_ context.Context, userID string, since time.Time) ([]model.MoodCheckin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MoodCheckin
	for _, checkin := range m.checkins {
		if checkin.UserID == userID && !checkin.CreatedAt.Before(since) {
			out = append(out, checkin)
		}
	}
	return out, nil
}

func (m *memStore) ListSchoolMoodCheckins(_ context.Context, schoolID string, since time.Time) ([]model.MoodCheckin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MoodCheckin
	for _, checkin := range m.checkins {
		profile, ok := m.profiles[checkin.UserID]
		if !ok || profile.Role != model.RoleStudent {
			continue
		}
		if profile.SchoolID == nil || *profile.SchoolID != schoolID {
			continue
		}
		if !checkin.CreatedAt.Before(since) {
			out = append(out, checkin)
		}
	}
	return out, nil
}

func (m *memStore) CreateChatMessage(_ context.Context, message model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *memStore) SetChatMessageFlagged(_ context.Context, messageID string, flagged bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, message := range m.messages {
		if message.ID == messageID {
			m.messages[i].Flagged = flagged
		}
	}
	return nil
}

func (m *memStore) ListChatMessages(_ context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatMessage
	for _, message := range m.messages {
		if message.UserID == userID {
			out = append(out, message)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) ListFlaggedChatMessages(_ context.Context, schoolID string, limit int) ([]model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatMessage
	for _, message := range m.messages {
		if !message.Flagged {
			continue
		}
		profile, ok := m.profiles[message.UserID]
		if !ok || profile.SchoolID == nil || *profile.SchoolID != schoolID {
			continue
		}
		out = append(out, message)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memStore) CountProfilesBySchool(_ context.Context, schoolID string) (map[model.Role]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.Role]int)
	for _, profile := range m.profiles {
		if profile.SchoolID != nil && *profile.SchoolID == schoolID {
			counts[profile.Role]++
		}
	}
	return counts, nil
}
