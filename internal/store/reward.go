package store

import (
	"database/sql"
	"fmt"

	"github.com/nhartman/ecosort/internal/model"
)

// RewardStore is the reward ledger. Records are append-only: status and
// station are the only columns that change after insert, and both updates
// are conditional on the current status so concurrent writers cannot
// double-apply a transition.
type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var station sql.NullString

	err := scanner.Scan(&r.ID, &r.UserEmail, &r.Category, &station, &r.Points, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if station.Valid {
		r.Station = &station.String
	}
	return &r, nil
}

const rewardCols = `id, user_email, category, station, points, status, created_at, updated_at`

// Create inserts a new reward record in status PENDING.
func (s *RewardStore) Create(userEmail, category string, points int) (*model.Reward, error) {
	result, err := s.db.Exec(
		`INSERT INTO rewards (user_email, category, points, status) VALUES (?, ?, ?, ?)`,
		userEmail, category, points, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// ListPending returns all records awaiting staff approval, oldest first.
func (s *RewardStore) ListPending() ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE status = ? ORDER BY created_at ASC, id ASC`,
		model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// ListByUser returns all of a user's records, newest first.
func (s *RewardStore) ListByUser(userEmail string) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE user_email = ? ORDER BY created_at DESC, id DESC`,
		userEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards by user: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// Approve transitions a record from PENDING to APPROVED. It reports false
// when the record was not in PENDING (already approved by another staff
// member, or nonexistent), which callers treat as a no-op.
func (s *RewardStore) Approve(id int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE rewards SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		model.StatusApproved, id, model.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("approve reward: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// Redeem transitions a record from APPROVED to EARNED and sets the
// delivery station. It reports false when the record was not in APPROVED;
// in particular, confirming while still PENDING changes nothing.
func (s *RewardStore) Redeem(id int64, station string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE rewards SET status = ?, station = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		model.StatusEarned, station, id, model.StatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("redeem reward: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// TotalEarnedPoints sums the points of a user's EARNED records.
func (s *RewardStore) TotalEarnedPoints(userEmail string) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM rewards WHERE user_email = ? AND status = ?`,
		userEmail, model.StatusEarned,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum earned points: %w", err)
	}
	return int(total.Int64), nil
}
