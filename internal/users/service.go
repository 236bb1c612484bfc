package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/socshift-backend/internal/activity"
	"github.com/angelmondragon/socshift-backend/pkg/auth"
	"github.com/angelmondragon/socshift-backend/pkg/db"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
	"github.com/angelmondragon/socshift-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/firebase"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

type userStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user models.User) error
	Save(ctx context.Context, user models.User) error
	DeleteTx(tx *firestore.Transaction, id string) error
}

type shiftStore interface {
	ListByUserTx(tx *firestore.Transaction, userID string) ([]models.Shift, error)
	DeleteTx(tx *firestore.Transaction, id string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn db.TxFunc) error
}

type accountManager interface {
	CreateAccount(ctx context.Context, account firebase.NewAccount) (string, error)
	DeleteAccount(ctx context.Context, uid string) error
	SetDisabled(ctx context.Context, uid string, disabled bool) error
}

// Service manages the roster and the caller's own profile.
type Service interface {
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	ListActive(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.User, error)
	Update(ctx context.Context, actor auth.Actor, id string, input UpdateInput) (*models.User, error)
	Delete(ctx context.Context, actor auth.Actor, id string) (*DeleteResult, error)
	Me(ctx context.Context, actor auth.Actor) (*models.User, error)
	UpdatePreferences(ctx context.Context, actor auth.Actor, input PreferencesInput) (*models.User, error)
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo     userStore
	Shifts   shiftStore
	Tx       txRunner
	Accounts accountManager
	Activity activity.Recorder
	Logger   *logger.Logger
}

type service struct {
	repo     userStore
	shifts   shiftStore
	tx       txRunner
	accounts accountManager
	activity activity.Recorder
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates and wires the user service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user repository required")
	}
	if params.Shifts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shift repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "auth account manager required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	recorder := params.Activity
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &service{
		repo:     params.Repo,
		shifts:   params.Shifts,
		tx:       params.Tx,
		accounts: params.Accounts,
		activity: recorder,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "load user")
	}
	return user, nil
}

func (s *service) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapStoreError(err, "list users")
	}
	return rows, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.User, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, mapStoreError(err, "list active users")
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.User, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	input.Email = strings.TrimSpace(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if input.Email == "" || input.Password == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email, password and name are required")
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleAnalyst
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	uid, err := s.accounts.CreateAccount(ctx, firebase.NewAccount{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.Name,
	})
	if err != nil {
		return nil, mapAccountError(err)
	}

	now := s.now().UTC()
	user := models.User{
		ID:          uid,
		Name:        input.Name,
		Email:       input.Email,
		Role:        role,
		IsAdmin:     input.IsAdmin,
		IsActive:    true,
		Preferences: models.Preferences{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if delErr := s.accounts.DeleteAccount(ctx, uid); delErr != nil && !errors.Is(delErr, firebase.ErrAccountNotFound) {
			s.logg.Error(s.logg.WithUserID(ctx, uid), "users.create.compensation_failed", delErr)
		}
		return nil, mapStoreError(err, "create user profile")
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityUserCreated,
		Action:  fmt.Sprintf("Created user %s", user.Name),
		Details: string(user.Role),
	})
	return &user, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id string, input UpdateInput) (*models.User, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.Role == nil && input.IsAdmin == nil && input.IsActive == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	if input.Role != nil && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if id == actor.UserID && input.IsActive != nil && !*input.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}

	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "load user")
	}

	var changes []string
	if input.Role != nil && *input.Role != user.Role {
		user.Role = *input.Role
		changes = append(changes, "role="+string(user.Role))
	}
	if input.IsAdmin != nil && *input.IsAdmin != user.IsAdmin {
		user.IsAdmin = *input.IsAdmin
		changes = append(changes, fmt.Sprintf("isAdmin=%t", user.IsAdmin))
	}
	if input.IsActive != nil && *input.IsActive != user.IsActive {
		if err := s.accounts.SetDisabled(ctx, id, !*input.IsActive); err != nil && !errors.Is(err, firebase.ErrAccountNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update auth account")
		}
		user.IsActive = *input.IsActive
		changes = append(changes, fmt.Sprintf("isActive=%t", user.IsActive))
	}
	if len(changes) == 0 {
		return user, nil
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, *user); err != nil {
		return nil, mapStoreError(err, "update user")
	}
	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityUserUpdated,
		Action:  fmt.Sprintf("Updated user %s", user.Name),
		Details: strings.Join(changes, ", "),
	})
	return user, nil
}

// cascadeBatch leaves room for the profile delete in the final transaction.
const cascadeBatch = db.MaxTxWrites - 1

// Delete removes the auth account first so the user cannot sign back in, then
// deletes every shift they hold in transactions of at most cascadeBatch
// writes. The profile goes with the last batch.
func (s *service) Delete(ctx context.Context, actor auth.Actor, id string) (*DeleteResult, error) {
	if !actor.Admin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if id == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account")
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "load user")
	}

	if err := s.accounts.DeleteAccount(ctx, id); err != nil && !errors.Is(err, firebase.ErrAccountNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete auth account")
	}

	result := &DeleteResult{UserID: id}
	for done := false; !done; {
		var removed int
		err = s.tx.WithTx(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			removed, done = 0, false
			held, err := s.shifts.ListByUserTx(tx, id)
			if err != nil {
				return err
			}
			if len(held) > cascadeBatch {
				held = held[:cascadeBatch]
			} else {
				done = true
			}
			for _, shift := range held {
				if err := s.shifts.DeleteTx(tx, shift.ID); err != nil {
					return err
				}
				removed++
			}
			if !done {
				return nil
			}
			return s.repo.DeleteTx(tx, id)
		})
		if err != nil {
			return nil, mapStoreError(err, "delete user")
		}
		result.ShiftsDeleted += removed
		if !done {
			s.logg.Info(s.logg.WithField(s.logg.WithUserID(ctx, id), "shifts_deleted", result.ShiftsDeleted), "users.delete.batch_committed")
		}
	}

	s.activity.Record(ctx, activity.Entry{
		Actor:   actor,
		Type:    enums.ActivityUserDeleted,
		Action:  fmt.Sprintf("Deleted user %s", user.Name),
		Details: fmt.Sprintf("%d shifts removed", result.ShiftsDeleted),
	})
	return result, nil
}

// Me returns the caller's profile, creating an analyst profile on first
// sign-in.
func (s *service) Me(ctx context.Context, actor auth.Actor) (*models.User, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.repo.Get(ctx, actor.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, mapStoreError(err, "load profile")
	}

	now := s.now().UTC()
	profile := models.User{
		ID:        actor.UserID,
		Name:      displayName(actor),
		Email:     actor.Email,
		Role:      enums.UserRoleAnalyst,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		if db.IsAlreadyExists(err) {
			return s.Get(ctx, actor.UserID)
		}
		return nil, mapStoreError(err, "create profile")
	}
	s.logg.Info(s.logg.WithUserID(ctx, actor.UserID), "users.profile_created")
	return &profile, nil
}

func (s *service) UpdatePreferences(ctx context.Context, actor auth.Actor, input PreferencesInput) (*models.User, error) {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	user.Preferences = input.toModel()
	user.UpdatedAt = s.now().UTC()
	if err := db.Validate(user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid preferences")
	}
	if err := s.repo.Save(ctx, *user); err != nil {
		return nil, mapStoreError(err, "save preferences")
	}
	return user, nil
}

func displayName(actor auth.Actor) string {
	if name := strings.TrimSpace(actor.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(actor.Email, "@"); ok && local != "" {
		return local
	}
	return actor.UserID
}

func mapAccountError(err error) error {
	switch {
	case errors.Is(err, firebase.ErrEmailExists):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "email already in use")
	case errors.Is(err, firebase.ErrInvalidEmail):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email address")
	case errors.Is(err, firebase.ErrInvalidPassword):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "password must be at least 6 characters")
	case errors.Is(err, firebase.ErrInvalidAccount):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account details")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create auth account")
}

func mapStoreError(err error, action string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	case errors.Is(err, db.ErrSchemaMismatch):
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action+": stored document is invalid")
	case db.IsAlreadyExists(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": user already exists")
	case db.IsContention(err):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action+": concurrent update, retry")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
