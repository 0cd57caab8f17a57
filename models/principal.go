package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the role label embedded in a credential and stored on every principal.
type Role string

const (
	RoleStaffVirtual    Role = "ETAPA PRODUCTIVA VIRTUAL"
	RoleStaffOnSite     Role = "ETAPA PRODUCTIVA PRESENCIAL"
	RoleInstructor      Role = "INSTRUCTOR"
	RoleInstructorOwner Role = "INSTRUCTOR OWNER"
	RoleApprentice      Role = "APRENDIZ"
)

// StaffRoles are the operational roles a StaffUser can hold.
var StaffRoles = []Role{RoleStaffVirtual, RoleStaffOnSite}

// InstructorRoles are the roles an Instructor can hold.
var InstructorRoles = []Role{RoleInstructor, RoleInstructorOwner}

// AllRoles lists every role known to the system.
var AllRoles = []Role{RoleStaffVirtual, RoleStaffOnSite, RoleInstructor, RoleInstructorOwner, RoleApprentice}

// PrincipalKind tags the principal variant.
type PrincipalKind string

const (
	KindStaffUser  PrincipalKind = "staff_user"
	KindInstructor PrincipalKind = "instructor"
	KindApprentice PrincipalKind = "apprentice"
)

// ActivationStatus is stored as 0 (active) or 1 (inactive).
type ActivationStatus int

const (
	StatusActive   ActivationStatus = 0
	StatusInactive ActivationStatus = 1
)

// IsValid reports whether s is one of the two stored values.
func (s ActivationStatus) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// String returns a readable label for audit snapshots.
func (s ActivationStatus) String() string {
	if s == StatusActive {
		return "active"
	}
	return "inactive"
}

// Principal is the authenticated actor attached to a request.
type Principal interface {
	PrincipalID() uuid.UUID
	Kind() PrincipalKind
	RoleLabel() Role
	DisplayName() string
	IsActive() bool
}

// StaffUser is an operational staff member.
type StaffUser struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Email        string           `json:"email" db:"email"`
	Role         Role             `json:"role" db:"role"`
	PasswordHash string           `json:"-" db:"password_hash"`
	Status       ActivationStatus `json:"status" db:"status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the StaffUser model
func (StaffUser) TableName() string {
	return "staff_users"
}

// NewStaffUser creates an active StaffUser.
func NewStaffUser(name, email string, role Role, passwordHash string) *StaffUser {
	now := time.Now()
	return &StaffUser{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (u *StaffUser) PrincipalID() uuid.UUID { return u.ID }
func (u *StaffUser) Kind() PrincipalKind    { return KindStaffUser }
func (u *StaffUser) RoleLabel() Role        { return u.Role }
func (u *StaffUser) DisplayName() string    { return u.Name }
func (u *StaffUser) IsActive() bool         { return u.Status == StatusActive }

// Instructor is a teaching instructor; the owner role supervises apprentices.
type Instructor struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Email          string           `json:"email" db:"email"`
	DocumentNumber string           `json:"document_number" db:"document_number"`
	Role           Role             `json:"role" db:"role"`
	PasswordHash   string           `json:"-" db:"password_hash"`
	Status         ActivationStatus `json:"status" db:"status"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Instructor model
func (Instructor) TableName() string {
	return "instructors"
}

// NewInstructor creates an active Instructor.
func NewInstructor(name, email, documentNumber string, role Role, passwordHash string) *Instructor {
	now := time.Now()
	return &Instructor{
		ID:             uuid.New(),
		Name:           name,
		Email:          email,
		DocumentNumber: documentNumber,
		Role:           role,
		PasswordHash:   passwordHash,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (i *Instructor) PrincipalID() uuid.UUID { return i.ID }
func (i *Instructor) Kind() PrincipalKind    { return KindInstructor }
func (i *Instructor) RoleLabel() Role        { return i.Role }
func (i *Instructor) DisplayName() string    { return i.Name }
func (i *Instructor) IsActive() bool         { return i.Status == StatusActive }

// Apprentice is a trainee in the productive stage.
type Apprentice struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	FirstName      string           `json:"first_name" db:"first_name"`
	LastName       string           `json:"last_name" db:"last_name"`
	Email          string           `json:"email" db:"email"`
	DocumentType   string           `json:"document_type" db:"document_type"`
	DocumentNumber string           `json:"document_number" db:"document_number"`
	PasswordHash   string           `json:"-" db:"password_hash"`
	Status         ActivationStatus `json:"status" db:"status"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Apprentice model
func (Apprentice) TableName() string {
	return "apprentices"
}

// NewApprentice creates an active Apprentice.
func NewApprentice(firstName, lastName, email, documentType, documentNumber, passwordHash string) *Apprentice {
	now := time.Now()
	return &Apprentice{
		ID:             uuid.New(),
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		DocumentType:   documentType,
		DocumentNumber: documentNumber,
		PasswordHash:   passwordHash,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (a *Apprentice) PrincipalID() uuid.UUID { return a.ID }
func (a *Apprentice) Kind() PrincipalKind    { return KindApprentice }
func (a *Apprentice) RoleLabel() Role        { return RoleApprentice }
func (a *Apprentice) IsActive() bool         { return a.Status == StatusActive }

func (a *Apprentice) DisplayName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}
