package group

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/hucares/hucares/core"
	"github.com/hucares/hucares/core/user"
)

// Membership roles
const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

const (
	DefaultMaxMembers = 20

	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	accessCodeLength   = 8
)

type Group struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	AccessCode  string    `json:"accessCode" db:"access_code"`
	CreatedBy   string    `json:"-" db:"created_by"`
	MaxMembers  int       `json:"maxMembers" db:"max_members"`
	IsActive    bool      `json:"-" db:"is_active"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"-" db:"updated_at"`         // UTC

	// CreatorUsername is populated by repository joins; not a column of "group".
	CreatorUsername string `json:"-" db:"creator_username"`
}

func (g Group) Creator() user.Public {
	return user.Public{ID: g.CreatedBy, Username: g.CreatorUsername}
}

type Membership struct {
	ID       string    `json:"-" db:"id"`
	UserID   string    `json:"-" db:"user_id"`
	GroupID  string    `json:"-" db:"group_id"`
	Role     string    `json:"role" db:"role"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"` // UTC
	IsActive bool      `json:"-" db:"is_active"`
}

// Member is a group member as presented to other members.
type Member struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email,omitempty" db:"email"`
	Role      string    `json:"role" db:"role"`
	JoinedAt  time.Time `json:"joinedAt" db:"joined_at"`
	LastLogin time.Time `json:"lastLoginAt" db:"last_login"`
}

// Detail is a group enriched with the requesting user's membership and the
// current member list.
type Detail struct {
	Group
	UserRole    string
	JoinedAt    time.Time
	MemberCount int
	Members     []Member
}

// NewAccessCode generates a short public group token: 8 uppercase
// alphanumeric characters. Uniqueness is enforced by the caller.
func NewAccessCode() (string, error) {
	return gonanoid.Generate(accessCodeAlphabet, accessCodeLength)
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	MaxMembers  int    `json:"maxMembers" validate:"omitempty,min=2,max=50"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Description = core.CleanString(ng.Description)
	if err := validate.Struct(ng); err != nil {
		return err
	}
	if ng.MaxMembers == 0 {
		ng.MaxMembers = DefaultMaxMembers
	}
	return nil
}

// JoinGroup carries the access code used to join a Group.
type JoinGroup struct {
	AccessCode string `json:"accessCode" validate:"required,min=6,max=10,access_code"`
}

func (jg *JoinGroup) Validate(validate *validator.Validate) error {
	jg.AccessCode = strings.ToUpper(core.CleanString(jg.AccessCode))
	return validate.Struct(jg)
}

// UpdateGroup defines what group settings an admin may modify.
type UpdateGroup struct {
	Name        string  `json:"name" validate:"omitempty,min=3,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	MaxMembers  int     `json:"maxMembers" validate:"omitempty,min=2,max=50"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	if ug.Description != nil {
		desc := core.CleanString(*ug.Description)
		ug.Description = &desc
	}
	return validate.Struct(ug)
}
