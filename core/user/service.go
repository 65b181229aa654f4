package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrNotAStudent    = errors.New("user is not a student")
	ErrNotAGuide      = errors.New("user is not a faculty member")

	NowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		// CheckUsernameUniqueness returns ErrUsernameExists or ErrEmailExists when taken by a user not in excludedUsers.
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		AssignGuide(ctx context.Context, studentID, guideID string) (User, error)
		Students(ctx context.Context, guideID string) ([]User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	if conf.PasswordResetTimeoutDelta > 0 {
		passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	}
	return &service{repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc()
	usr := User{
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      nu.Email,
		Role:       nu.Role,
		Department: nu.Department,
		Branch:     nu.Branch,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Name = uu.Name
	usr.Department = uu.Department
	usr.Branch = uu.Branch
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// AssignGuide makes a faculty member the guide of a student.
func (svc *service) AssignGuide(ctx context.Context, studentID, guideID string) (User, error) {
	student, err := svc.repo.GetUserByID(ctx, studentID)
	if err != nil {
		return User{}, err
	}
	if !student.IsStudent() {
		return User{}, core.NewValidationError(ErrNotAStudent, core.FieldError{Field: "studentId", Error: ErrNotAStudent.Error()})
	}
	guide, err := svc.repo.GetUserByID(ctx, guideID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "guideId", Error: err.Error()})
		}
		return User{}, err
	}
	if !guide.IsFaculty() {
		return User{}, core.NewValidationError(ErrNotAGuide, core.FieldError{Field: "guideId", Error: ErrNotAGuide.Error()})
	}

	student.AssignedGuideID = guide.ID
	student.UpdatedAt = NowFunc()
	return svc.repo.UpdateUser(ctx, student)
}

// Students returns the students assigned to a guide.
func (svc *service) Students(ctx context.Context, guideID string) ([]User, error) {
	return svc.repo.QueryUsers(ctx, &QueryFilter{Roles: []string{RoleStudent}, GuideID: guideID}, nil)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive || usr.Email == "" {
		return ErrNotFound
	}
	svc.mailSvc.SendMessages(svc.passwordResetMessage(usr))
	return nil
}

func (svc *service) passwordResetMessage(usr User) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": makeToken(usr),
		},
	}
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	invalid := func(err error) error {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}

	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalid(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid(errInvalidToken)
		}
		return err
	}
	if err := verifyToken(usr, rp.Token); err != nil {
		return invalid(err)
	}
	if err := validatePasswordFor(rp.Password, usr); err != nil {
		return err
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = NowFunc()
	if _, err := svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	svc.logger.Info(fmt.Sprintf("password reset for user %s", usr.ID), usr)
	return nil
}
