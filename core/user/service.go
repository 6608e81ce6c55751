package user

import (
	"net/mail"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(username, email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		GetUserByID(id int64) (User, error)
		GetUserByUsername(username string) (User, error)
		GetUserByEmail(email string) (User, error)
		GetUserByUsernameOrEmail(username string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		FilterUsers(filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(user User, isActive *bool) (User, error)
		DeleteUsersByID(ids ...int64) error
	}

	ServiceInterface interface {
		CheckUniqueness(uname, email string, exclUsers ...User) error
		Create(nu NewUser) (User, error)
		GetByID(id int64) (User, error)
		GetByUsername(uname string) (User, error)
		GetByEmail(email string) (User, error)
		GetByUsernameOrEmail(uname string) (User, error)
		Query(filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(id int64, uu UpdateUser) (User, error)
		Delete(ids ...int64) error
		SetLastLogin(usr User) (User, error)
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetUserPassword) error
	}

	service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *service {
	return &service{conf: conf, repo: repo, mailSvc: mailSvc}
}

func (svc *service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(usr)
}

func (svc *service) GetByID(id int64) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

func (svc *service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *service) GetByUsernameOrEmail(uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
}

func (svc *service) Query(filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.FilterUsers(filter, ordering)
}

func (svc *service) Update(id int64, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		FirstName: uu.FirstName,
		LastName:  uu.LastName,
		Username:  uu.Username,
		Email:     uu.Email,
		Roles:     uu.Roles,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(usr, uu.IsActive)
}

func (svc *service) Delete(ids ...int64) error {
	return svc.repo.DeleteUsersByID(ids...)
}

func (svc *service) SetLastLogin(usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(usr, nil)
}

// RequestPasswordReset emails a signed reset token to the account owner.
func (svc *service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	token, err := MakeToken(svc.conf, usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      svc.conf.AppName + " Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			User  User
			UID   string
			Token string
		}{usr, EncodeUID(usr), token},
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *service) ResetPassword(rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	id, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}

	usr, err := svc.GetByID(id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}

	if err = verifyToken(svc.conf, usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(usr, nil)
	return err
}
