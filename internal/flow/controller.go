package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nhartman/ecosort/internal/auth"
	"github.com/nhartman/ecosort/internal/classify"
	"github.com/nhartman/ecosort/internal/model"
	"github.com/nhartman/ecosort/internal/store"
)

// PointsPerSubmission is fixed at reward creation and never recomputed.
const PointsPerSubmission = 10

var (
	// ErrInvalidStep means the requested action is not legal from the
	// session's current step.
	ErrInvalidStep = errors.New("action not available at this step")
	// ErrNotApproved means delivery was confirmed before staff approval.
	// This is a wait condition, not a failure: the record is untouched
	// and the session stays at the reward-pending step.
	ErrNotApproved = errors.New("reward has not been approved yet")
	// ErrNotStaff means a review action was attempted by a non-staff session.
	ErrNotStaff = errors.New("staff role required")
	// ErrNotUser means a user-only action was attempted by a staff session.
	ErrNotUser = errors.New("user role required")
	// ErrUnknownStation means the chosen drop-off station does not exist.
	ErrUnknownStation = errors.New("unknown station")
)

// Event names broadcast on reward transitions.
const (
	EventRewardPending  = "reward_pending"
	EventRewardApproved = "reward_approved"
	EventRewardEarned   = "reward_earned"
)

// NotifyFunc receives reward lifecycle events for live updates. A nil
// NotifyFunc disables notifications.
type NotifyFunc func(event string, reward *model.Reward)

// Controller sequences sessions through the workflow. It owns no state of
// its own; all durable state lives in the stores and all transient state in
// the Session passed to each method. Methods leave the session unchanged
// whenever they return an error, except where noted.
type Controller struct {
	auth     *auth.Service
	registry *classify.Registry
	rewards  *store.RewardStore
	stations *store.StationStore
	notify   NotifyFunc
	logger   *slog.Logger
}

func NewController(
	authSvc *auth.Service,
	registry *classify.Registry,
	rewards *store.RewardStore,
	stations *store.StationStore,
	notify NotifyFunc,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		auth:     authSvc,
		registry: registry,
		rewards:  rewards,
		stations: stations,
		notify:   notify,
		logger:   logger,
	}
}

func (c *Controller) emit(event string, r *model.Reward) {
	if c.notify != nil {
		c.notify(event, r)
	}
}

// SelectRole picks user or staff and moves to the login step.
func (c *Controller) SelectRole(s *Session, role model.Role) error {
	if s.Step != StepRoleSelect {
		return ErrInvalidStep
	}
	if role != model.RoleUser && role != model.RoleStaff {
		return fmt.Errorf("unknown role %q", role)
	}
	s.Role = role
	s.Step = StepLogin
	return nil
}

// authenticated records the principal and advances past login: users go to
// category selection, staff straight to review.
func (s *Session) authenticated(principalID int64, identifier string) {
	s.PrincipalID = principalID
	s.Identifier = identifier
	if s.Role == model.RoleStaff {
		s.Step = StepAdminReview
	} else {
		s.Step = StepCategorySelect
	}
}

// Signup registers a new account for the session's selected role and
// authenticates it. Validation failures leave the session at the login step.
func (c *Controller) Signup(s *Session, identifier, name, password, confirm, staffCode string) error {
	if s.Step != StepLogin {
		return ErrInvalidStep
	}

	switch s.Role {
	case model.RoleStaff:
		st, err := c.auth.SignupStaff(identifier, name, password, confirm, staffCode)
		if err != nil {
			return err
		}
		s.authenticated(st.ID, st.StaffID)
	default:
		u, err := c.auth.SignupUser(identifier, name, password, confirm)
		if err != nil {
			return err
		}
		s.authenticated(u.ID, u.Email)
	}

	c.logger.Info("signup", "role", s.Role, "identifier", s.Identifier)
	return nil
}

// Login authenticates an existing account for the session's selected role.
// Credential failures leave the session at the login step.
func (c *Controller) Login(s *Session, identifier, password string) error {
	if s.Step != StepLogin {
		return ErrInvalidStep
	}

	switch s.Role {
	case model.RoleStaff:
		st, err := c.auth.LoginStaff(identifier, password)
		if err != nil {
			return err
		}
		s.authenticated(st.ID, st.StaffID)
	default:
		u, err := c.auth.LoginUser(identifier, password)
		if err != nil {
			return err
		}
		s.authenticated(u.ID, u.Email)
	}

	c.logger.Info("login", "role", s.Role, "identifier", s.Identifier)
	return nil
}

// Logout clears every session field and returns to role selection. It is
// available from any step.
func (c *Controller) Logout(s *Session) {
	s.reset()
}

// SelectCategory starts a new submission for the chosen waste category.
func (c *Controller) SelectCategory(s *Session, cat classify.Category) error {
	if s.Step != StepCategorySelect {
		return ErrInvalidStep
	}
	s.resetSubmission()
	s.Category = cat
	s.Step = StepUpload
	return nil
}

// Upload classifies the image and creates exactly one PENDING reward record
// for the submission. Revisiting the upload step after the reward exists
// returns the prior result instead of creating a duplicate. A missing model
// for the category is recoverable: the session stays at the upload step and
// no record is created. Store failures abandon the mutation and leave the
// session unchanged.
func (c *Controller) Upload(ctx context.Context, s *Session, image []byte) (*model.Prediction, *model.Reward, error) {
	if s.Step == StepRewardPending && s.RewardID != 0 {
		// Already classified this submission; idempotent revisit.
		r, err := c.rewards.GetByID(s.RewardID)
		if err != nil {
			return nil, nil, err
		}
		return s.LastPrediction, r, nil
	}
	if s.Step != StepUpload {
		return nil, nil, ErrInvalidStep
	}

	pred, err := c.registry.Classify(ctx, s.Category, image)
	if err != nil {
		return nil, nil, err
	}

	r, err := c.rewards.Create(s.Identifier, string(s.Category), PointsPerSubmission)
	if err != nil {
		return nil, nil, err
	}

	s.LastPrediction = &pred
	s.RewardID = r.ID
	s.Step = StepRewardPending

	c.logger.Info("submission classified",
		"identifier", s.Identifier,
		"category", s.Category,
		"label", pred.Label,
		"reward_id", r.ID,
	)
	c.emit(EventRewardPending, r)
	return &pred, r, nil
}

// ConfirmDelivery records the drop-off station and earns the reward. If
// staff have not approved yet the confirmation is rejected with
// ErrNotApproved and nothing changes; the user stays at the reward-pending
// step and may retry. On success the session returns to category selection
// for the next submission.
func (c *Controller) ConfirmDelivery(s *Session, stationID int64) (*model.Reward, error) {
	if s.Step != StepRewardPending || s.RewardID == 0 {
		return nil, ErrInvalidStep
	}

	station, err := c.stations.GetByID(stationID)
	if err != nil {
		return nil, err
	}
	if station == nil {
		return nil, ErrUnknownStation
	}

	ok, err := c.rewards.Redeem(s.RewardID, station.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotApproved
	}

	r, err := c.rewards.GetByID(s.RewardID)
	if err != nil {
		return nil, err
	}

	c.logger.Info("delivery confirmed",
		"identifier", s.Identifier,
		"reward_id", s.RewardID,
		"station", station.Name,
	)
	s.resetSubmission()
	s.Step = StepCategorySelect

	c.emit(EventRewardEarned, r)
	return r, nil
}

// PendingRewards lists all records awaiting approval. Staff only.
func (c *Controller) PendingRewards(s *Session) ([]model.Reward, error) {
	if s.Role != model.RoleStaff {
		return nil, ErrNotStaff
	}
	if s.Step != StepAdminReview {
		return nil, ErrInvalidStep
	}
	return c.rewards.ListPending()
}

// Approve transitions one record from PENDING to APPROVED. Staff only. A
// record that is no longer pending (approved by another staff member
// between listing and this call) is a no-op: approved is false and err is
// nil. The session stays at the review step either way.
func (c *Controller) Approve(s *Session, rewardID int64) (approved bool, err error) {
	if s.Role != model.RoleStaff {
		return false, ErrNotStaff
	}
	if s.Step != StepAdminReview {
		return false, ErrInvalidStep
	}

	ok, err := c.rewards.Approve(rewardID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	r, err := c.rewards.GetByID(rewardID)
	if err != nil {
		return true, err
	}

	c.logger.Info("reward approved", "staff", s.Identifier, "reward_id", rewardID)
	c.emit(EventRewardApproved, r)
	return true, nil
}

// Rewards returns the session user's own records plus total earned points.
func (c *Controller) Rewards(s *Session) ([]model.Reward, int, error) {
	if s.Role != model.RoleUser {
		return nil, 0, ErrNotUser
	}
	records, err := c.rewards.ListByUser(s.Identifier)
	if err != nil {
		return nil, 0, err
	}
	total, err := c.rewards.TotalEarnedPoints(s.Identifier)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
