package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/passwords"
	"github.com/dmitrijs2005/accountkeeper/internal/server/policy"
)

const (
	opRegister           = "register"
	opLogin              = "login"
	opChangePassword     = "change_password"
	opChangeRole         = "change_role"
	opChangeActiveStatus = "change_active_status"
	opDeleteUser         = "delete_user"
)

// AccountService runs the account workflows against a CredentialStore. It
// holds no locks: uniqueness and read-modify-write safety belong to the store.
type AccountService struct {
	store             CredentialStore
	hasher            passwords.Hasher
	policy            policy.Policy
	passwordExpiry    time.Duration
	bootstrapUsername string
	logger            logging.Logger
	recorder          Recorder
	now               func() time.Time
}

// NewAccountService constructs an AccountService using the server config for
// password expiry, complexity policy and the reserved bootstrap username.
func NewAccountService(store CredentialStore, hasher passwords.Hasher, cfg *config.Config, logger logging.Logger) *AccountService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &AccountService{
		store:             store,
		hasher:            hasher,
		policy:            cfg.Policy,
		passwordExpiry:    cfg.PasswordExpiry,
		bootstrapUsername: cfg.BootstrapUsername,
		logger:            logger.With("component", "accounts"),
		recorder:          nopRecorder{},
		now:               time.Now,
	}
}

// WithRecorder attaches an outcome recorder and returns s.
func (s *AccountService) WithRecorder(r Recorder) *AccountService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// Register creates an account. The bootstrap username (compared
// case-insensitively) becomes an Admin whose password never expires, every
// other name a Regular account. Username/password complexity is the caller's
// job; only blank input is refused here.
func (s *AccountService) Register(ctx context.Context, username, password string) (Result, error) {
	if strings.TrimSpace(username) == "" {
		return s.record(opRegister, invalidInput("username must not be empty")), nil
	}
	if password == "" {
		return s.record(opRegister, invalidInput("password must not be empty")), nil
	}

	_, err := s.store.Get(ctx, username)
	switch {
	case err == nil:
		return s.record(opRegister, fail(OutcomeAlreadyExists)), nil
	case !errors.Is(err, common.ErrorNotFound):
		return Result{}, fmt.Errorf("register %q: lookup: %w", username, err)
	}

	hash, salt, err := s.hasher.Hash(password)
	if err != nil {
		return Result{}, fmt.Errorf("register %q: %w", username, err)
	}

	bootstrap := s.isBootstrap(username)
	account := &models.Account{
		Username:             username,
		PasswordHash:         hash,
		PasswordSalt:         salt,
		PasswordSetDate:      s.today(),
		PasswordNeverExpires: bootstrap,
		Role:                 models.RoleRegular,
		IsActive:             true,
	}
	if bootstrap {
		account.Role = models.RoleAdmin
	}

	if err := s.store.Insert(ctx, account); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return s.record(opRegister, fail(OutcomeAlreadyExists)), nil
		}
		return Result{}, fmt.Errorf("register %q: insert: %w", username, err)
	}

	s.logger.Info(ctx, "account registered", "username", username, "role", account.Role.String())
	return s.record(opRegister, ok()), nil
}

// Login checks the credentials and password age. Inactive accounts are
// reported through IsActive, not refused.
func (s *AccountService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	account, res, err := s.lookup(ctx, username, OutcomeUsernameNotFound)
	if err != nil || account == nil {
		return LoginResult{Result: s.record(opLogin, res)}, err
	}

	if !s.hasher.Verify(password, account.PasswordHash, account.PasswordSalt) {
		return LoginResult{Result: s.record(opLogin, fail(OutcomePasswordIncorrect))}, nil
	}

	if s.passwordExpired(account) {
		return LoginResult{Result: s.record(opLogin, fail(OutcomePasswordExpired))}, nil
	}

	return LoginResult{
		Result:   s.record(opLogin, ok()),
		Username: account.Username,
		Role:     account.Role,
		IsActive: account.IsActive,
	}, nil
}

// ChangePassword replaces the password of username. The checks run in a fixed
// order: old password, equality with the old one, confirmation, complexity.
func (s *AccountService) ChangePassword(ctx context.Context, username, oldPassword, newPassword, repeatPassword string) (Result, error) {
	account, res, err := s.lookup(ctx, username, OutcomeUserNotFound)
	if err != nil || account == nil {
		return s.record(opChangePassword, res), err
	}

	if !s.hasher.Verify(oldPassword, account.PasswordHash, account.PasswordSalt) {
		return s.record(opChangePassword, fail(OutcomeOldPasswordIncorrect)), nil
	}
	if newPassword == oldPassword {
		return s.record(opChangePassword, fail(OutcomeSameAsOld)), nil
	}
	if newPassword != repeatPassword {
		return s.record(opChangePassword, fail(OutcomeConfirmationMismatch)), nil
	}
	if err := policy.ValidatePassword(s.policy, newPassword); err != nil {
		return s.record(opChangePassword, invalidInput(err.Error())), nil
	}

	hash, salt, err := s.hasher.Hash(newPassword)
	if err != nil {
		return Result{}, fmt.Errorf("change password %q: %w", username, err)
	}

	account.PasswordHash = hash
	account.PasswordSalt = salt
	account.PasswordSetDate = s.today()
	if err := s.store.Update(ctx, account); err != nil {
		return Result{}, fmt.Errorf("change password %q: update: %w", username, err)
	}

	s.logger.Info(ctx, "password changed", "username", username)
	return s.record(opChangePassword, ok()), nil
}

// ChangeRole sets the role of target on behalf of acting. An admin cannot
// demote themselves and the last remaining admin cannot be demoted.
func (s *AccountService) ChangeRole(ctx context.Context, acting, target string, role models.Role) (Result, error) {
	if !role.IsValid() {
		return s.record(opChangeRole, invalidInput("unknown role")), nil
	}

	account, res, err := s.lookup(ctx, target, OutcomeUserNotFound)
	if err != nil || account == nil {
		return s.record(opChangeRole, res), err
	}

	if account.Role == role {
		return s.record(opChangeRole, fail(OutcomeNoChange)), nil
	}

	if account.Role == models.RoleAdmin && role == models.RoleRegular {
		if acting == target {
			return s.record(opChangeRole, fail(OutcomeSelfDowngradeForbidden)), nil
		}

		admins, err := s.store.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return Result{}, fmt.Errorf("change role %q: count admins: %w", target, err)
		}
		if admins <= 1 {
			return s.record(opChangeRole, fail(OutcomeLastAdminProtected)), nil
		}
	}

	from := account.Role
	account.Role = role
	if err := s.store.Update(ctx, account); err != nil {
		if errors.Is(err, common.ErrLastAdmin) {
			return s.record(opChangeRole, fail(OutcomeLastAdminProtected)), nil
		}
		return Result{}, fmt.Errorf("change role %q: update: %w", target, err)
	}

	s.logger.Info(ctx, "role changed", "username", target, "by", acting, "from", from.String(), "to", role.String())
	return s.record(opChangeRole, ok()), nil
}

// StatusResult reports the activity flag after a ChangeActiveStatus call.
type StatusResult struct {
	Result
	IsActive bool
}

// ChangeActiveStatus flips the IsActive flag of target. Nobody can change
// their own status and the last active admin cannot be deactivated.
func (s *AccountService) ChangeActiveStatus(ctx context.Context, target, acting string) (StatusResult, error) {
	account, res, err := s.lookup(ctx, target, OutcomeUserNotFound)
	if err != nil || account == nil {
		return StatusResult{Result: s.record(opChangeActiveStatus, res)}, err
	}

	if acting == target {
		return StatusResult{Result: s.record(opChangeActiveStatus, fail(OutcomeSelfActionForbidden)), IsActive: account.IsActive}, nil
	}

	account.IsActive = !account.IsActive
	if err := s.store.Update(ctx, account); err != nil {
		if errors.Is(err, common.ErrLastAdmin) {
			return StatusResult{Result: s.record(opChangeActiveStatus, fail(OutcomeLastAdminProtected)), IsActive: !account.IsActive}, nil
		}
		return StatusResult{}, fmt.Errorf("change active status %q: update: %w", target, err)
	}

	s.logger.Info(ctx, "active status changed", "username", target, "by", acting, "active", account.IsActive)
	return StatusResult{Result: s.record(opChangeActiveStatus, ok()), IsActive: account.IsActive}, nil
}

// DeleteUser removes target and everything it owns. Nobody can delete their
// own account and the last active admin cannot be deleted.
func (s *AccountService) DeleteUser(ctx context.Context, target, acting string) (Result, error) {
	account, res, err := s.lookup(ctx, target, OutcomeUserNotFound)
	if err != nil || account == nil {
		return s.record(opDeleteUser, res), err
	}

	if acting == target {
		return s.record(opDeleteUser, fail(OutcomeSelfActionForbidden)), nil
	}

	if err := s.store.Delete(ctx, account); err != nil {
		if errors.Is(err, common.ErrLastAdmin) {
			return s.record(opDeleteUser, fail(OutcomeLastAdminProtected)), nil
		}
		return Result{}, fmt.Errorf("delete user %q: %w", target, err)
	}

	s.logger.Info(ctx, "account deleted", "username", target, "by", acting)
	return s.record(opDeleteUser, ok()), nil
}

// EnsureBootstrapAdmin registers the bootstrap account with password unless
// it already exists.
func (s *AccountService) EnsureBootstrapAdmin(ctx context.Context, password string) error {
	if s.bootstrapUsername == "" || password == "" {
		return nil
	}

	res, err := s.Register(ctx, s.bootstrapUsername, password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	switch res.Outcome {
	case OutcomeOK:
		s.logger.Info(ctx, "bootstrap admin created", "username", s.bootstrapUsername)
	case OutcomeAlreadyExists:
		s.logger.Debug(ctx, "bootstrap admin already present", "username", s.bootstrapUsername)
	default:
		return fmt.Errorf("bootstrap admin: %s", res.Message)
	}
	return nil
}

// lookup fetches username. A missing account yields (nil, fail(missing), nil),
// a store fault yields a non-nil error.
func (s *AccountService) lookup(ctx context.Context, username string, missing Outcome) (*models.Account, Result, error) {
	account, err := s.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fail(missing), nil
		}
		return nil, Result{}, fmt.Errorf("lookup %q: %w", username, err)
	}
	return account, Result{}, nil
}

func (s *AccountService) isBootstrap(username string) bool {
	return s.bootstrapUsername != "" && strings.EqualFold(username, s.bootstrapUsername)
}

// today is the current UTC date at midnight.
func (s *AccountService) today() time.Time {
	return dateOf(s.now())
}

// passwordExpired compares whole UTC dates: a password set on day D with a
// 90-day expiry is still accepted on D+90 and refused from D+91.
func (s *AccountService) passwordExpired(a *models.Account) bool {
	if a.PasswordNeverExpires || s.passwordExpiry <= 0 {
		return false
	}
	return dateOf(a.PasswordSetDate).Add(s.passwordExpiry).Before(s.today())
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// record reports the outcome of a finished operation. Faults are not recorded.
func (s *AccountService) record(op string, r Result) Result {
	if r.Success || r.Outcome != OutcomeOK {
		s.recorder.Observe(op, r.Outcome.String())
	}
	return r
}

// IsActiveAdmin reports whether username currently names an active admin.
// Unknown users are not admins.
func (s *AccountService) IsActiveAdmin(ctx context.Context, username string) (bool, error) {
	account, err := s.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check admin %q: %w", username, err)
	}
	return account.Role == models.RoleAdmin && account.IsActive, nil
}
