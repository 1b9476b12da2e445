package services

import (
	"context"
	"errors"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/apiclient"
)

const (
	// DefaultAvatar is attached to every new account.
	DefaultAvatar = "https://via.placeholder.com/150"
	// MinimumAge is the youngest age allowed to register.
	MinimumAge = 18
	// MinimumPasswordLength is the shortest accepted password.
	MinimumPasswordLength = 6

	MsgRolesFallback  = "Failed to load roles. Default roles applied."
	MsgRegisterFailed = "Failed to register. Please try again."
	MsgDeleteFailed   = "Failed to delete the account."
	MsgProfileFailed  = "Failed to load your profile."
	profilePath       = "auth/profile"
	dateOfBirthLayout = "2006-01-02"
	averageYear       = time.Duration(365.25 * 24 * float64(time.Hour))
)

var (
	// ErrAccountInvalidInput indicates a registration form failed validation.
	ErrAccountInvalidInput = errors.New("account: invalid input")
	// ErrAccountUnauthenticated indicates the visitor has no valid session.
	ErrAccountUnauthenticated = errors.New("account: unauthenticated")
	// ErrAccountUnavailable indicates the upstream account API failed.
	ErrAccountUnavailable = errors.New("account: unavailable")

	// DefaultRoles are offered when the role list cannot be loaded.
	DefaultRoles = []string{"Customer", "Admin"}

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// AccountServiceDeps wires the account service.
type AccountServiceDeps struct {
	API    AccountAPI
	Clock  func() time.Time
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type accountService struct {
	api    AccountAPI
	now    func() time.Time
	logger func(ctx context.Context, event string, fields map[string]any)
}

// NewAccountService constructs an AccountService validating required dependencies.
func NewAccountService(deps AccountServiceDeps) (AccountService, error) {
	if deps.API == nil {
		return nil, errors.New("account service: api is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &accountService{
		api: deps.API,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Register validates the form and creates the account. Validation failures are returned as
// FieldErrors wrapped with ErrAccountInvalidInput.
func (s *accountService) Register(ctx context.Context, cmd RegisterCommand) (UserProfile, error) {
	if fields := s.validate(cmd); len(fields) > 0 {
		return UserProfile{}, errors.Join(ErrAccountInvalidInput, fields)
	}

	profile, err := s.api.Register(ctx, apiclient.RegisterRequest{
		Name:     strings.TrimSpace(cmd.Name),
		Email:    strings.TrimSpace(cmd.Email),
		Password: cmd.Password,
		Role:     strings.TrimSpace(cmd.Role),
		DOB:      strings.TrimSpace(cmd.DateOfBirth),
		Avatar:   DefaultAvatar,
	})
	if err != nil {
		s.logger(ctx, "account.register_failed", map[string]any{"error": err.Error()})
		return UserProfile{}, &Error{
			Message: apiclient.MessageOf(err, MsgRegisterFailed),
			Err:     errors.Join(ErrAccountUnavailable, err),
		}
	}
	s.logger(ctx, "account.registered", map[string]any{"userId": profile.ID})
	return profile, nil
}

func (s *accountService) validate(cmd RegisterCommand) FieldErrors {
	fields := FieldErrors{}
	if strings.TrimSpace(cmd.Name) == "" {
		fields["name"] = "Name is required"
	}

	email := strings.TrimSpace(cmd.Email)
	switch {
	case email == "":
		fields["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		fields["email"] = "Email must be a valid email address"
	}

	switch {
	case cmd.Password == "":
		fields["password"] = "Password is required"
	case len([]rune(cmd.Password)) < MinimumPasswordLength:
		fields["password"] = "Password must be at least 6 characters"
	}
	if cmd.Password != cmd.ConfirmPassword {
		fields["confirmPassword"] = "Passwords do not match"
	}

	if strings.TrimSpace(cmd.Role) == "" {
		fields["role"] = "Role is required"
	}

	dob := strings.TrimSpace(cmd.DateOfBirth)
	if dob == "" {
		fields["dob"] = "Date of Birth is required"
	} else if born, err := time.Parse(dateOfBirthLayout, dob); err != nil {
		fields["dob"] = "Date of Birth must be a valid date"
	} else if ageInYears(born, s.now()) < MinimumAge {
		fields["dob"] = "You must be at least 18 years old."
	}
	return fields
}

// ageInYears counts whole 365.25-day years between born and now.
func ageInYears(born, now time.Time) int {
	return int(math.Floor(float64(now.Sub(born)) / float64(averageYear)))
}

// Roles returns the distinct upstream roles, or DefaultRoles with a notice when they cannot be
// loaded.
func (s *accountService) Roles(ctx context.Context) RoleOptions {
	roles, err := s.api.Roles(ctx)
	if err != nil || len(roles) == 0 {
		fields := map[string]any{"empty": len(roles) == 0}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.logger(ctx, "account.roles_fallback", fields)
		return RoleOptions{Roles: append([]string(nil), DefaultRoles...), Notice: MsgRolesFallback}
	}
	return RoleOptions{Roles: roles}
}

// Profile returns the signed-in account.
func (s *accountService) Profile(ctx context.Context, session AuthSession) (UserProfile, error) {
	if session == nil || !session.IsAuthenticated(ctx) {
		return UserProfile{}, ErrAccountUnauthenticated
	}
	var profile UserProfile
	if err := session.FetchWithAuth(ctx, http.MethodGet, profilePath, nil, &profile); err != nil {
		s.logger(ctx, "account.profile_failed", map[string]any{"error": err.Error()})
		if errors.Is(err, apiclient.ErrUnauthorized) {
			return UserProfile{}, errors.Join(ErrAccountUnauthenticated, err)
		}
		return UserProfile{}, &Error{Message: MsgProfileFailed, Err: errors.Join(ErrAccountUnavailable, err)}
	}
	return profile, nil
}

// DeleteAccount removes the signed-in account and ends the session.
func (s *accountService) DeleteAccount(ctx context.Context, session AuthSession) error {
	if session == nil || !session.IsAuthenticated(ctx) {
		return ErrAccountUnauthenticated
	}
	if err := session.FetchWithAuth(ctx, http.MethodDelete, profilePath, nil, nil); err != nil {
		s.logger(ctx, "account.delete_failed", map[string]any{"error": err.Error()})
		return &Error{
			Message: apiclient.MessageOf(err, MsgDeleteFailed),
			Err:     errors.Join(ErrAccountUnavailable, err),
		}
	}
	if err := session.Logout(ctx); err != nil {
		s.logger(ctx, "account.logout_failed", map[string]any{"error": err.Error()})
	}
	s.logger(ctx, "account.deleted", nil)
	return nil
}
