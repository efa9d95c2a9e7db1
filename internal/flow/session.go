// Package flow implements the submission workflow: role selection,
// authentication, category choice, upload and classification, reward
// creation, staff review, and delivery confirmation. Each connected
// principal drives their own Session through the Controller; the rendering
// layer only reads the current step and re-displays.
package flow

import (
	"sync"

	"github.com/nhartman/ecosort/internal/classify"
	"github.com/nhartman/ecosort/internal/model"
)

// Step is the session's position in the workflow.
type Step string

const (
	StepRoleSelect     Step = "role_select"
	StepLogin          Step = "login"
	StepCategorySelect Step = "category_select"
	StepUpload         Step = "upload"
	StepRewardPending  Step = "reward_pending"
	StepAdminReview    Step = "admin_review"
)

// Session is the transient per-principal workflow state. It is owned
// exclusively by the one session that created it and is never shared, so
// it carries no lock. Nothing here is persisted.
type Session struct {
	Step        Step
	Role        model.Role
	PrincipalID int64
	Identifier  string

	// Current submission, valid from category selection until delivery
	// is confirmed. RewardID is zero until a reward record has been
	// created for the in-progress submission; it is the guard that makes
	// reward creation idempotent per submission.
	Category       classify.Category
	LastPrediction *model.Prediction
	RewardID       int64
}

// NewSession returns a session at the initial step.
func NewSession() *Session {
	return &Session{Step: StepRoleSelect}
}

// reset returns the session to its initial state, clearing every field.
func (s *Session) reset() {
	*s = Session{Step: StepRoleSelect}
}

// resetSubmission clears the in-progress submission fields only.
func (s *Session) resetSubmission() {
	s.Category = ""
	s.LastPrediction = nil
	s.RewardID = 0
}

// Manager tracks live sessions keyed by auth token. The map itself is
// guarded; individual sessions are single-owner and are not.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Put registers a session under the given token.
func (m *Manager) Put(token string, s *Session) {
	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
}

// Get returns the session for the token, creating one at the step that
// matches the role if the server restarted since login.
func (m *Manager) Get(token string, role model.Role, principalID int64, identifier string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[token]; ok {
		return s
	}
	s := &Session{
		Role:        role,
		PrincipalID: principalID,
		Identifier:  identifier,
	}
	if role == model.RoleStaff {
		s.Step = StepAdminReview
	} else {
		s.Step = StepCategorySelect
	}
	m.sessions[token] = s
	return s
}

// Delete drops the session for the token.
func (m *Manager) Delete(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}
