package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/flowery-users/config"
	"github.com/oksasatya/flowery-users/internal/domain/entity"
	repo "github.com/oksasatya/flowery-users/internal/domain/repository"
	"github.com/oksasatya/flowery-users/pkg/apperror"
	"github.com/oksasatya/flowery-users/pkg/helpers"
	"github.com/oksasatya/flowery-users/pkg/mailer/templates"
)

var (
	sweptUsersTotal        = expvar.NewInt("users_swept_total")
	uploadedDocumentsTotal = expvar.NewInt("documents_uploaded_total")
)

// ResetPath is appended to the frontend base URL, followed by the token.
const ResetPath = "/api/sessions/resetpasswordvalidation/"

type Service struct {
	Repo     repo.UserRepository
	Notifier Notifier
	Tokens   ResetTokens
	Index    UserIndexer // optional
	Logger   *logrus.Logger
	Cfg      *config.Config

	// DocumentsBaseURL prefixes the stored filename of every uploaded document.
	DocumentsBaseURL string

	now func() time.Time
}

func NewService(r repo.UserRepository, notifier Notifier, tokens ResetTokens, index UserIndexer, logger *logrus.Logger, cfg *config.Config, documentsBaseURL string) *Service {
	return &Service{
		Repo:             r,
		Notifier:         notifier,
		Tokens:           tokens,
		Index:            index,
		Logger:           logger,
		Cfg:              cfg,
		DocumentsBaseURL: strings.TrimRight(documentsBaseURL, "/"),
		now:              time.Now,
	}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Service) isAdmin(email string) bool {
	return s.Cfg != nil && s.Cfg.AdminEmail != "" && entity.SameEmail(email, s.Cfg.AdminEmail)
}

func (s *Service) inactivityDays() int {
	if s.Cfg == nil || s.Cfg.InactivityDays < 1 {
		return 2
	}
	return s.Cfg.InactivityDays
}

// ListUsersQuery holds the raw caller input for ListUsers. Empty Limit or
// Page means not provided. BaseURL is nil when no nav links are wanted.
type ListUsersQuery struct {
	Limit   string
	Page    string
	BaseURL *string
}

func (s *Service) ListUsers(ctx context.Context, q ListUsersQuery) (*UsersPage, error) {
	const op = "getUsers Error"

	limit, err := positiveParam(op, "limit", q.Limit, repo.DefaultLimit)
	if err != nil {
		return nil, err
	}
	page, err := positiveParam(op, "page", q.Page, repo.DefaultPage)
	if err != nil {
		return nil, err
	}
	if q.BaseURL != nil && strings.TrimSpace(*q.BaseURL) == "" {
		return nil, apperror.New(apperror.InvalidProgramState, op, "baseUrl must be a non-empty string", map[string]any{"baseUrl": *q.BaseURL})
	}

	res, err := s.Repo.GetUsers(ctx, limit, page)
	if err != nil {
		return nil, apperror.Wrap(err, op, "failed to retrieve users")
	}

	out := &UsersPage{
		Users:         ToUserBriefDTOs(res.Users),
		TotalUsers:    res.TotalUsers,
		Limit:         res.Limit,
		TotalPages:    res.TotalPages,
		PagingCounter: res.PagingCounter,
		Page:          res.Page,
		HasPrevPage:   res.HasPrevPage,
		HasNextPage:   res.HasNextPage,
		PrevPage:      res.PrevPage,
		NextPage:      res.NextPage,
	}
	if q.BaseURL != nil {
		out.NavLinks = navLinks(strings.TrimSpace(*q.BaseURL), res)
	}
	return out, nil
}

func positiveParam(op, name, raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.New(apperror.InvalidInput, op, name+" must be a positive integer", map[string]any{name: raw})
	}
	return n, nil
}

func navLinks(base string, p *repo.UserPage) *NavLinks {
	link := func(page int) *string {
		s := fmt.Sprintf("%s?limit=%d&page=%d", base, p.Limit, page)
		return &s
	}
	nl := &NavLinks{}
	if p.TotalPages > 1 {
		nl.FirstLink = link(1)
		nl.LastLink = link(p.TotalPages)
	}
	if p.PrevPage != nil {
		nl.PrevLink = link(*p.PrevPage)
	}
	if p.NextPage != nil {
		nl.NextLink = link(*p.NextPage)
	}
	return nl
}

// findActive resolves email to an active user or a NotFound error.
func (s *Service) findActive(ctx context.Context, op, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, apperror.Wrap(err, op, "failed to look up user")
	}
	if u == nil {
		return nil, apperror.New(apperror.NotFound, op, "user not found", map[string]any{"email": email})
	}
	return u, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*UserDTO, error) {
	u, err := s.findActive(ctx, "getUserByEmail Error", email)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(u)
	return &dto, nil
}

// RequestPasswordReset emails a single-use reset link to the user. The admin
// address is never recoverable through this path.
func (s *Service) RequestPasswordReset(ctx context.Context, email, frontendBaseURL string) (*entity.User, error) {
	const op = "resetPassword Error"

	if s.isAdmin(email) {
		return nil, apperror.New(apperror.BusinessRuleViolation, op, "the administrator password cannot be reset", map[string]any{"email": email})
	}
	base := strings.TrimRight(strings.TrimSpace(frontendBaseURL), "/")
	if base == "" {
		return nil, apperror.New(apperror.InvalidProgramState, op, "frontend base url is required", nil)
	}
	u, err := s.findActive(ctx, op, email)
	if err != nil {
		return nil, err
	}

	token, exp, err := s.Tokens.Issue(ctx, u.Email)
	if err != nil {
		return nil, apperror.Wrap(err, op, "failed to issue reset token")
	}
	resetURL := base + ResetPath + token

	subject, text, html, err := templates.Render(templates.PasswordReset, templates.NewPasswordResetData(s.Cfg, u.FullName(), u.Email, resetURL, exp))
	if err != nil {
		return nil, apperror.Wrap(err, op, "failed to render reset email")
	}
	if err := s.Notifier.Send(ctx, u.Email, subject, text, html); err != nil {
		return nil, apperror.Wrap(err, op, "failed to send reset email")
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("password reset requested")
	}
	return u, nil
}

// ConsumeResetToken redeems a reset token and returns the email it was
// issued for. A token can be redeemed once.
func (s *Service) ConsumeResetToken(ctx context.Context, token string) (string, error) {
	const op = "resetPasswordValidation Error"

	if strings.TrimSpace(token) == "" {
		return "", apperror.New(apperror.InvalidInput, op, "token is required", nil)
	}
	email, err := s.Tokens.Consume(ctx, token)
	switch {
	case errors.Is(err, helpers.ErrResetTokenInvalid), errors.Is(err, helpers.ErrResetTokenUsed):
		return "", apperror.New(apperror.InvalidInput, op, err.Error(), nil)
	case err != nil:
		return "", apperror.Wrap(err, op, "failed to validate reset token")
	}
	if _, err := s.findActive(ctx, op, email); err != nil {
		return "", err
	}
	return email, nil
}

// TogglePremium flips a user between user and premium. Promotion requires
// every document in entity.RequiredPremiumDocuments.
func (s *Service) TogglePremium(ctx context.Context, email string) (*entity.User, error) {
	const op = "togglePremium Error"

	if s.isAdmin(email) {
		return nil, apperror.New(apperror.BusinessRuleViolation, op, "the administrator role cannot be changed", map[string]any{"email": email})
	}
	u, err := s.findActive(ctx, op, email)
	if err != nil {
		return nil, err
	}

	next, ok := u.Role.Toggled()
	if !ok {
		return nil, apperror.New(apperror.BusinessRuleViolation, op, "role cannot be toggled", map[string]any{"role": string(u.Role)})
	}
	if next == entity.RolePremium {
		if len(u.Documents) == 0 {
			return nil, apperror.New(apperror.BusinessRuleViolation, op, "user has not uploaded any documents", map[string]any{"email": u.Email})
		}
		if missing := entity.MissingDocuments(u.Documents); len(missing) > 0 {
			return nil, apperror.New(apperror.BusinessRuleViolation, op, "user is missing required documents: "+strings.Join(missing, ", "), map[string]any{"missing": missing})
		}
	}

	updated, err := s.Repo.Update(ctx, u.ID, repo.UserUpdate{Role: &next})
	if err != nil {
		return nil, apperror.Wrap(err, op, "failed to update role")
	}
	s.index(ctx, updated)
	return updated, nil
}

// RecordConnection stamps the user's last connection with the current time.
func (s *Service) RecordConnection(ctx context.Context, email string) (*entity.User, error) {
	const op = "updateConnection Error"

	u, err := s.findActive(ctx, op, email)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	updated, err := s.Repo.Update(ctx, u.ID, repo.UserUpdate{LastConnection: &now})
	if err != nil {
		return nil, apperror.Wrap(err, op, "failed to record connection")
	}
	s.index(ctx, updated)
	return updated, nil
}

// AppendDocuments adds files to the user's documents, keeping existing ones.
func (s *Service) AppendDocuments(ctx context.Context, email string, files []UploadedFile) (*entity.User, error) {
	const op = "updateDocuments Error"

	u, err := s.findActive(ctx, op, email)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperror.New(apperror.InvalidInput, op, "at least one document is required", nil)
	}

	docs := make([]entity.Document, 0, len(u.Documents)+len(files))
	docs = append(docs, u.Documents...)
	for _, f := range files {
		name := entity.DocumentName(f.OriginalName)
		if name == "" || strings.TrimSpace(f.StoredName) == "" {
			return nil, apperror.New(apperror.InvalidInput, op, "invalid document", map[string]any{"filename": f.OriginalName})
		}
		docs = append(docs, entity.Document{
			Name:         name,
			ReferenceURL: s.DocumentsBaseURL + "/" + f.StoredName,
		})
	}

	updated, err := s.Repo.Update(ctx, u.ID, repo.UserUpdate{Documents: &docs})
	if err != nil {
		return nil, apperror.Wrap(err, op, "failed to save documents")
	}
	uploadedDocumentsTotal.Add(int64(len(files)))
	s.index(ctx, updated)
	return updated, nil
}

// SweepInactiveUsers soft-deletes users idle for longer than the configured
// threshold and notifies each of them, one at a time.
func (s *Service) SweepInactiveUsers(ctx context.Context) ([]UserBriefDTO, error) {
	const op = "deleteInactiveUsers Error"

	days := s.inactivityDays()
	swept, err := s.Repo.DeleteInactive(ctx, days)
	if err != nil {
		return nil, apperror.Wrap(err, op, "failed to delete inactive users")
	}
	sweptUsersTotal.Add(int64(len(swept)))

	out := ToUserBriefDTOs(swept)
	for i := range swept {
		u := &swept[i]
		s.unindex(ctx, u.ID)

		subject, text, html, err := templates.Render(templates.AccountDeleted, templates.NewAccountDeletedData(s.Cfg, u.FullName(), u.Email, days))
		if err == nil {
			err = s.Notifier.Send(ctx, u.Email, subject, text, html)
		}
		if err != nil {
			return nil, &apperror.Error{
				Kind:    apperror.DatabaseError,
				Name:    op,
				Message: "notifier failed for " + u.Email,
				Params:  map[string]any{"email": u.Email},
				Err:     err,
			}
		}
	}
	if s.Logger != nil && len(out) > 0 {
		s.Logger.WithField("count", len(out)).WithField("days", days).Info("inactive users swept")
	}
	return out, nil
}

func (s *Service) index(ctx context.Context, u *entity.User) {
	if s.Index == nil || u == nil {
		return
	}
	if err := s.Index.IndexUser(ctx, ToUserBriefDTO(u)); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("user index failed")
	}
}

func (s *Service) unindex(ctx context.Context, id string) {
	if s.Index == nil {
		return
	}
	if err := s.Index.RemoveUser(ctx, id); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", id).Warn("user unindex failed")
	}
}
