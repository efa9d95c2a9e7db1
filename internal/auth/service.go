package auth

import (
	"errors"
	"fmt"

	"github.com/nhartman/ecosort/internal/model"
	"github.com/nhartman/ecosort/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrEmptyField means a required signup field was blank.
	ErrEmptyField = errors.New("all fields are required")
	// ErrPasswordMismatch means password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrDuplicateIdentifier means the identifier is already registered.
	ErrDuplicateIdentifier = errors.New("identifier already registered")
	// ErrInvalidCredentials covers both unknown identifier and wrong
	// password, so login failures do not reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBadStaffCode means the staff provisioning code was wrong.
	ErrBadStaffCode = errors.New("invalid staff code")
)

// Service implements registration and login over the credential stores.
// Passwords are bcrypt-hashed before they reach a store; plaintext is never
// persisted.
type Service struct {
	users *store.UserStore
	staff *store.StaffStore

	// staffCode gates staff registration. It is provisioned out-of-band
	// by the operator; an empty code disables staff signup entirely.
	staffCode string
}

func NewService(users *store.UserStore, staff *store.StaffStore, staffCode string) *Service {
	return &Service{users: users, staff: staff, staffCode: staffCode}
}

// SignupUser registers a new user account.
func (s *Service) SignupUser(email, name, password, confirm string) (*model.User, error) {
	if email == "" || name == "" || password == "" || confirm == "" {
		return nil, ErrEmptyField
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(email, name, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateIdentifier
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SignupStaff registers a new staff account. The caller must present the
// operator-provisioned staff code.
func (s *Service) SignupStaff(staffID, name, password, confirm, code string) (*model.Staff, error) {
	if staffID == "" || name == "" || password == "" || confirm == "" {
		return nil, ErrEmptyField
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}
	if s.staffCode == "" || code != s.staffCode {
		return nil, ErrBadStaffCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	st, err := s.staff.Create(staffID, name, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateIdentifier
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// LoginUser verifies a user's credentials and returns the account.
func (s *Service) LoginUser(email, password string) (*model.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// LoginStaff verifies a staff member's credentials and returns the account.
func (s *Service) LoginStaff(staffID, password string) (*model.Staff, error) {
	if staffID == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	st, err := s.staff.GetByStaffID(staffID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return st, nil
}
