package flow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nhartman/ecosort/internal/auth"
	"github.com/nhartman/ecosort/internal/classify"
	"github.com/nhartman/ecosort/internal/database"
	"github.com/nhartman/ecosort/internal/model"
	"github.com/nhartman/ecosort/internal/store"
)

type stubClassifier struct {
	pred model.Prediction
}

func (s *stubClassifier) Classify(ctx context.Context, image []byte) (model.Prediction, error) {
	return s.pred, nil
}

type fixture struct {
	ctrl       *Controller
	rewards    *store.RewardStore
	stations   *store.StationStore
	events     *[]string
	ecoPointID int64
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry := classify.NewRegistry()
	registry.Register(classify.GeneralWaste, &stubClassifier{
		pred: model.Prediction{Label: "plastic", Confidence: 0.9},
	})
	// No furniture classifier registered, matching the default deployment.

	rewards := store.NewRewardStore(db)
	stations := store.NewStationStore(db)
	authSvc := auth.NewService(store.NewUserStore(db), store.NewStaffStore(db), "letmein")

	var events []string
	notify := func(event string, r *model.Reward) {
		events = append(events, event)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController(authSvc, registry, rewards, stations, notify, logger)

	all, err := stations.List()
	if err != nil {
		t.Fatalf("list stations: %v", err)
	}
	var ecoPointID int64
	for _, s := range all {
		if s.Name == "EcoPoint Center" {
			ecoPointID = s.ID
		}
	}
	if ecoPointID == 0 {
		t.Fatal("seeded EcoPoint Center station not found")
	}

	return &fixture{ctrl: ctrl, rewards: rewards, stations: stations, events: &events, ecoPointID: ecoPointID}
}

func signupUser(t *testing.T, f *fixture, email, password string) *Session {
	t.Helper()
	s := NewSession()
	if err := f.ctrl.SelectRole(s, model.RoleUser); err != nil {
		t.Fatalf("select role: %v", err)
	}
	if err := f.ctrl.Signup(s, email, "Test User", password, password, ""); err != nil {
		t.Fatalf("signup: %v", err)
	}
	return s
}

func signupStaff(t *testing.T, f *fixture) *Session {
	t.Helper()
	s := NewSession()
	if err := f.ctrl.SelectRole(s, model.RoleStaff); err != nil {
		t.Fatalf("select role: %v", err)
	}
	if err := f.ctrl.Signup(s, "STF-001", "Mei Ling", "pw123", "pw123", "letmein"); err != nil {
		t.Fatalf("staff signup: %v", err)
	}
	return s
}

func TestFullSubmissionLifecycle(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	// User signs up, logs in again, and works through a submission.
	user := signupUser(t, f, "alice@example.com", "pw123")
	if user.Step != StepCategorySelect {
		t.Fatalf("step after signup = %q, want %q", user.Step, StepCategorySelect)
	}

	relogin := NewSession()
	if err := f.ctrl.SelectRole(relogin, model.RoleUser); err != nil {
		t.Fatalf("select role: %v", err)
	}
	if err := f.ctrl.Login(relogin, "alice@example.com", "pw123"); err != nil {
		t.Fatalf("login after signup: %v", err)
	}

	if err := f.ctrl.SelectCategory(user, classify.GeneralWaste); err != nil {
		t.Fatalf("select category: %v", err)
	}

	pred, reward, err := f.ctrl.Upload(ctx, user, []byte("image-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if pred.Label != "plastic" || pred.Confidence != 0.9 {
		t.Errorf("prediction = %+v, want plastic/0.9", pred)
	}
	if reward.Points != 10 {
		t.Errorf("points = %d, want 10", reward.Points)
	}
	if reward.Status != model.StatusPending {
		t.Errorf("status = %q, want %q", reward.Status, model.StatusPending)
	}
	if user.Step != StepRewardPending {
		t.Errorf("step = %q, want %q", user.Step, StepRewardPending)
	}

	// Staff reviews and approves the one pending record.
	staff := signupStaff(t, f)
	if staff.Step != StepAdminReview {
		t.Fatalf("staff step = %q, want %q", staff.Step, StepAdminReview)
	}

	pending, err := f.ctrl.PendingRewards(staff)
	if err != nil {
		t.Fatalf("pending rewards: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != reward.ID {
		t.Fatalf("pending = %+v, want exactly alice's record %d", pending, reward.ID)
	}

	approved, err := f.ctrl.Approve(staff, reward.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved {
		t.Fatal("expected approve to transition the record")
	}
	if staff.Step != StepAdminReview {
		t.Errorf("staff step after approve = %q, want to remain %q", staff.Step, StepAdminReview)
	}

	// User confirms delivery at EcoPoint Center.
	earned, err := f.ctrl.ConfirmDelivery(user, f.ecoPointID)
	if err != nil {
		t.Fatalf("confirm delivery: %v", err)
	}
	if earned.Status != model.StatusEarned {
		t.Errorf("status = %q, want %q", earned.Status, model.StatusEarned)
	}
	if earned.Station == nil || *earned.Station != "EcoPoint Center" {
		t.Errorf("station = %v, want EcoPoint Center", earned.Station)
	}
	if user.Step != StepCategorySelect {
		t.Errorf("step after confirm = %q, want %q", user.Step, StepCategorySelect)
	}

	wantEvents := []string{EventRewardPending, EventRewardApproved, EventRewardEarned}
	got := *f.events
	if len(got) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", got, wantEvents)
	}
	for i := range wantEvents {
		if got[i] != wantEvents[i] {
			t.Errorf("events[%d] = %q, want %q", i, got[i], wantEvents[i])
		}
	}
}

func TestConfirmBeforeApprovalIsRejected(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := signupUser(t, f, "alice@example.com", "pw123")
	if err := f.ctrl.SelectCategory(user, classify.GeneralWaste); err != nil {
		t.Fatalf("select category: %v", err)
	}
	_, reward, err := f.ctrl.Upload(ctx, user, []byte("img"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	_, err = f.ctrl.ConfirmDelivery(user, f.ecoPointID)
	if !errors.Is(err, ErrNotApproved) {
		t.Fatalf("err = %v, want ErrNotApproved", err)
	}

	got, _ := f.rewards.GetByID(reward.ID)
	if got.Status != model.StatusPending || got.Station != nil {
		t.Errorf("record changed: status=%q station=%v", got.Status, got.Station)
	}
	if user.Step != StepRewardPending {
		t.Errorf("step = %q, want to remain %q", user.Step, StepRewardPending)
	}
}

func TestUploadIsIdempotentPerSubmission(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := signupUser(t, f, "alice@example.com", "pw123")
	if err := f.ctrl.SelectCategory(user, classify.GeneralWaste); err != nil {
		t.Fatalf("select category: %v", err)
	}

	_, first, err := f.ctrl.Upload(ctx, user, []byte("img"))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	_, second, err := f.ctrl.Upload(ctx, user, []byte("img"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second upload created record %d, want existing %d", second.ID, first.ID)
	}

	pending, err := f.rewards.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("len(pending) = %d, want 1", len(pending))
	}
}

func TestUploadFurnitureModelUnavailable(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := signupUser(t, f, "alice@example.com", "pw123")
	if err := f.ctrl.SelectCategory(user, classify.Furniture); err != nil {
		t.Fatalf("select category: %v", err)
	}

	_, _, err := f.ctrl.Upload(ctx, user, []byte("img"))
	if !errors.Is(err, classify.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if user.Step != StepUpload {
		t.Errorf("step = %q, want to remain %q", user.Step, StepUpload)
	}

	pending, err := f.rewards.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0 (no record without a prediction)", len(pending))
	}
}

func TestDuplicateSignupLeavesSessionAtLogin(t *testing.T) {
	f := setupFixture(t)

	signupUser(t, f, "bob@example.com", "pw123")

	s := NewSession()
	if err := f.ctrl.SelectRole(s, model.RoleUser); err != nil {
		t.Fatalf("select role: %v", err)
	}
	err := f.ctrl.Signup(s, "bob@example.com", "Bob Again", "pw456", "pw456", "")
	if !errors.Is(err, auth.ErrDuplicateIdentifier) {
		t.Fatalf("err = %v, want ErrDuplicateIdentifier", err)
	}
	if s.Step != StepLogin {
		t.Errorf("step = %q, want to remain %q for retry", s.Step, StepLogin)
	}
}

func TestApproveRequiresStaff(t *testing.T) {
	f := setupFixture(t)

	user := signupUser(t, f, "alice@example.com", "pw123")
	if _, err := f.ctrl.Approve(user, 1); !errors.Is(err, ErrNotStaff) {
		t.Errorf("err = %v, want ErrNotStaff", err)
	}
	if _, err := f.ctrl.PendingRewards(user); !errors.Is(err, ErrNotStaff) {
		t.Errorf("err = %v, want ErrNotStaff", err)
	}
}

func TestRewardsRequiresUser(t *testing.T) {
	f := setupFixture(t)

	staff := signupStaff(t, f)
	if _, _, err := f.ctrl.Rewards(staff); !errors.Is(err, ErrNotUser) {
		t.Errorf("err = %v, want ErrNotUser", err)
	}
}

func TestApproveLostRaceIsNoOp(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := signupUser(t, f, "alice@example.com", "pw123")
	if err := f.ctrl.SelectCategory(user, classify.GeneralWaste); err != nil {
		t.Fatalf("select category: %v", err)
	}
	_, reward, err := f.ctrl.Upload(ctx, user, []byte("img"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	staff := signupStaff(t, f)
	if ok, err := f.ctrl.Approve(staff, reward.ID); err != nil || !ok {
		t.Fatalf("first approve: ok=%v err=%v", ok, err)
	}

	// Another staff member approving the same record after the fact.
	ok, err := f.ctrl.Approve(staff, reward.ID)
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if ok {
		t.Error("second approve should be a no-op")
	}
}

func TestLogoutResetsSession(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := signupUser(t, f, "alice@example.com", "pw123")
	if err := f.ctrl.SelectCategory(user, classify.GeneralWaste); err != nil {
		t.Fatalf("select category: %v", err)
	}
	if _, _, err := f.ctrl.Upload(ctx, user, []byte("img")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	f.ctrl.Logout(user)
	if user.Step != StepRoleSelect {
		t.Errorf("step = %q, want %q", user.Step, StepRoleSelect)
	}
	if user.PrincipalID != 0 || user.Identifier != "" || user.RewardID != 0 || user.LastPrediction != nil {
		t.Errorf("session not fully cleared: %+v", user)
	}
}

func TestStepGuards(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	s := NewSession()
	if err := f.ctrl.SelectCategory(s, classify.GeneralWaste); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("select category at role select: err = %v, want ErrInvalidStep", err)
	}
	if _, _, err := f.ctrl.Upload(ctx, s, nil); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("upload at role select: err = %v, want ErrInvalidStep", err)
	}
	if _, err := f.ctrl.ConfirmDelivery(s, 1); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("confirm at role select: err = %v, want ErrInvalidStep", err)
	}
	if err := f.ctrl.Login(s, "a", "b"); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("login at role select: err = %v, want ErrInvalidStep", err)
	}
}

func TestConfirmUnknownStation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	user := signupUser(t, f, "alice@example.com", "pw123")
	if err := f.ctrl.SelectCategory(user, classify.GeneralWaste); err != nil {
		t.Fatalf("select category: %v", err)
	}
	if _, _, err := f.ctrl.Upload(ctx, user, []byte("img")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := f.ctrl.ConfirmDelivery(user, 9999); !errors.Is(err, ErrUnknownStation) {
		t.Errorf("err = %v, want ErrUnknownStation", err)
	}
}
