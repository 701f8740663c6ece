// Package registration enrolls a new user into a company with a role and
// sends them a link to set their password.
package registration

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gosuda/widgetboard/internal/auth"
	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/notify"
)

// Fields is the flat form a registration is submitted as. Recognized keys are
// first_name, last_name, email, company_id and role_id; others are ignored.
type Fields map[string]string

// Result reports the outcome. Errors maps a field (or "company"/"role") to its
// messages and is empty when OK.
type Result struct {
	OK     bool                `json:"ok"`
	User   *domain.User        `json:"user,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

func (r *Result) addError(field, msg string) {
	if r.Errors == nil {
		r.Errors = make(map[string][]string)
	}
	r.Errors[field] = append(r.Errors[field], msg)
}

type userFields struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Email     string `validate:"required,email,max=254"`
}

// fieldNames maps validator struct fields to form keys.
var fieldNames = map[string]string{
	"FirstName": "first_name",
	"LastName":  "last_name",
	"Email":     "email",
}

var fieldValidator = validator.New(validator.WithRequiredStructEnabled())

// DefaultPasswordTokenTTL bounds how long the emailed set-password link works.
const DefaultPasswordTokenTTL = 72 * time.Hour

type Service struct {
	companies domain.CompanyRepository
	roles     domain.RoleRepository
	users     domain.UserRepository
	notifier  notify.Notifier
	jwtSecret string
	publicURL string
	tokenTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

type Options struct {
	JWTSecret string
	// PublicURL is the base the set-password link is built on.
	PublicURL string
	TokenTTL  time.Duration
	Logger    zerolog.Logger
}

func NewService(companies domain.CompanyRepository, roles domain.RoleRepository, users domain.UserRepository,
	notifier notify.Notifier, opts Options,
) *Service {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = DefaultPasswordTokenTTL
	}
	return &Service{
		companies: companies,
		roles:     roles,
		users:     users,
		notifier:  notifier,
		jwtSecret: opts.JWTSecret,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		tokenTTL:  ttl,
		log:       opts.Logger,
		now:       time.Now,
	}
}

// Register validates and persists the user and its company/role relation in
// one transaction, then notifies the user. Validation problems come back in
// Result.Errors; the error return is reserved for infrastructure failures.
// A failed notification is logged and does not fail the registration.
func (s *Service) Register(ctx context.Context, fields Fields) (*Result, error) {
	res := &Result{}

	company, err := s.loadCompany(ctx, fields["company_id"])
	if err != nil {
		return nil, fmt.Errorf("registration.Register: %w", err)
	}
	if company == nil {
		res.addError("company", "not found")
	}

	var role *domain.Role
	if company != nil {
		role, err = s.loadRole(ctx, fields["role_id"])
		if err != nil {
			return nil, fmt.Errorf("registration.Register: %w", err)
		}
		if role == nil {
			res.addError("role", "not found")
		}
	}

	uf := userFields{
		FirstName: strings.TrimSpace(fields["first_name"]),
		LastName:  strings.TrimSpace(fields["last_name"]),
		Email:     strings.ToLower(strings.TrimSpace(fields["email"])),
	}
	s.validateUser(uf, res)

	if len(res.Errors) > 0 {
		return res, nil
	}

	now := s.now()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     uf.Email,
		FirstName: uf.FirstName,
		LastName:  uf.LastName,
		JTI:       auth.NewJTI(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	rel := &domain.UserRoleRelation{
		ID:        uuid.New(),
		UserID:    user.ID,
		CompanyID: company.ID,
		RoleID:    role.ID,
		CreatedAt: now,
	}

	if err := s.users.CreateWithRelation(ctx, user, rel); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			res.addError("email", "has already been taken")
			return res, nil
		}
		return nil, fmt.Errorf("registration.Register: %w", err)
	}

	res.OK = true
	res.User = user

	s.sendPasswordLink(ctx, user, company)

	return res, nil
}

func (s *Service) loadCompany(ctx context.Context, raw string) (*domain.Company, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil //nolint:nilnil // unparsable id reads as not found
	}
	c, err := s.companies.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil //nolint:nilnil // reported through Result
	}
	return c, err
}

func (s *Service) loadRole(ctx context.Context, raw string) (*domain.Role, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil //nolint:nilnil // unparsable id reads as not found
	}
	r, err := s.roles.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil //nolint:nilnil // reported through Result
	}
	return r, err
}

func (s *Service) validateUser(uf userFields, res *Result) {
	err := fieldValidator.Struct(uf)
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.addError("base", err.Error())
		return
	}
	for _, fe := range verrs {
		res.addError(fieldNames[fe.Field()], describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "email":
		return "is invalid"
	case "max":
		return "is too long (maximum is " + fe.Param() + " characters)"
	default:
		return "is invalid"
	}
}

func (s *Service) sendPasswordLink(ctx context.Context, user *domain.User, company *domain.Company) {
	token, err := auth.IssuePasswordToken(s.jwtSecret, user.ID, user.JTI, s.tokenTTL)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.String()).Msg("registration: issue password token")
		return
	}

	msg := notify.Message{
		To:      user.Email,
		Subject: "Set your widgetboard password",
		Body:    fmt.Sprintf("Hi %s, you have been added to %s. Choose a password to sign in.", user.FirstName, company.Name),
		Link:    s.publicURL + "/password?token=" + url.QueryEscape(token),
	}

	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("registration: password notification failed")
	}
}
