package store

import (
	"database/sql"
	"fmt"

	"github.com/nhartman/ecosort/internal/model"
)

// StaffStore persists staff accounts. Staff IDs are scoped to their own
// table, so a staff ID and a user email never collide.
type StaffStore struct {
	db *sql.DB
}

func NewStaffStore(db *sql.DB) *StaffStore {
	return &StaffStore{db: db}
}

func scanStaff(scanner interface{ Scan(...any) error }) (*model.Staff, error) {
	var st model.Staff
	err := scanner.Scan(&st.ID, &st.StaffID, &st.Name, &st.PasswordHash, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

const staffCols = `id, staff_id, name, password_hash, created_at`

func (s *StaffStore) Create(staffID, name, passwordHash string) (*model.Staff, error) {
	result, err := s.db.Exec(
		`INSERT INTO staff (staff_id, name, password_hash) VALUES (?, ?, ?)`,
		staffID, name, passwordHash,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert staff: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *StaffStore) GetByID(id int64) (*model.Staff, error) {
	row := s.db.QueryRow(`SELECT `+staffCols+` FROM staff WHERE id = ?`, id)
	st, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return st, nil
}

func (s *StaffStore) GetByStaffID(staffID string) (*model.Staff, error) {
	row := s.db.QueryRow(`SELECT `+staffCols+` FROM staff WHERE staff_id = ?`, staffID)
	st, err := scanStaff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get staff by staff id: %w", err)
	}
	return st, nil
}
