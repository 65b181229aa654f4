package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/dissertrack/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleFaculty = "faculty" // a.k.a. guide
	RoleHOD     = "hod"     // head of department
)

var (
	AllRoles = []string{RoleStudent, RoleFaculty, RoleHOD}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Faculty", Value: RoleFaculty},
		{Name: "Head of Department", Value: RoleHOD},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	Department      string    `json:"department"`
	Branch          string    `json:"branch"`
	AssignedGuideID string    `json:"assignedGuideId,omitempty"` // students only
	IsActive        bool      `json:"isActive"`
	PasswordHash    []byte    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"` // UTC
	UpdatedAt       time.Time `json:"updatedAt"` // UTC
	LastLogin       time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsFaculty() bool { return u.Role == RoleFaculty }
func (u *User) IsHOD() bool     { return u.Role == RoleHOD }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=student faculty hod"`
	Department      string `json:"department"`
	Branch          string `json:"branch"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Department = core.CleanString(nu.Department)
	nu.Branch = core.CleanString(nu.Branch)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Department      string `json:"department"`
	Branch          string `json:"branch"`
	IsActive        *bool  `json:"isActive"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if dept := core.CleanString(uu.Department); dept != "" {
		uu.Department = dept
	} else {
		uu.Department = origUsr.Department
	}
	if branch := core.CleanString(uu.Branch); branch != "" {
		uu.Branch = branch
	} else {
		uu.Branch = origUsr.Branch
	}
	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Password != "" {
		return validatePasswordFor(uu.Password, origUsr)
	}
	return nil
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search     string   `query:"search"`
	Roles      []string `query:"role"`
	Department string   `query:"department"`
	GuideID    string   `query:"guideId"`
	IsActive   *bool    `query:"isActive"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.Department == "" && qf.GuideID == "" && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
	qf.GuideID = core.CleanString(qf.GuideID)
}
