package users

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/apperr"
	"storefront/auth"
	"storefront/models"
	"storefront/utils"
)

var (
	ErrEmailExists        = apperr.New(apperr.Conflict, "Duplicate user with this email")
	ErrUserNotFound       = apperr.New(apperr.NotFound, "User does not exist")
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "Invalid credentials")
)

type Repository interface {
	Insert(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	List(ctx context.Context, page utils.Page) ([]models.User, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.User, error)
}

// Update lists the fields to change; nil fields are left alone.
type Update struct {
	Name     *string
	Email    *string
	Password *string
}

type TokenIssuer interface {
	Issue(userID, name, email string, admin bool) (string, error)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ListResult struct {
	Users []models.User
	Count int64
	Pages int
	Page  int
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	cost   int
	now    func() time.Time
}

func NewService(repo Repository, tokens TokenIssuer, bcryptCost int) *Service {
	return &Service{repo: repo, tokens: tokens, cost: bcryptCost, now: time.Now}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.AuthResponse, error) {
	return s.create(ctx, in, false)
}

// SeedAdmin creates an administrator account. It is only reachable from the
// command line.
func (s *Service) SeedAdmin(ctx context.Context, in RegisterInput) (*models.AuthResponse, error) {
	return s.create(ctx, in, true)
}

func (s *Service) create(ctx context.Context, in RegisterInput, admin bool) (*models.AuthResponse, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, apperr.New(apperr.Validation, "All fields are required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, apperr.OrPersistence(err, "Unable to create user")
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hashed, err := auth.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &models.User{
		Name:      name,
		Email:     email,
		Password:  hashed,
		Admin:     admin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, apperr.OrPersistence(err, "Unable to create user")
	}
	return s.authResponse(u)
}

// Login answers the same error for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.New(apperr.Validation, "All fields are required")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if apperr.Is(err, apperr.NotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to log in")
	}

	ok, err := auth.VerifyPassword(password, u.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.authResponse(u)
}

func (s *Service) List(ctx context.Context, page utils.Page) (*ListResult, error) {
	users, count, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return &ListResult{Users: users, Count: count, Pages: utils.Pages(count, page.PerPage), Page: page.Page}, nil
}

func (s *Service) UpdateName(ctx context.Context, actor *auth.Claims, id, name string) (*models.AuthResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.Validation, "All fields are required")
	}
	oid, err := s.authorize(actor, id)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, oid, Update{Name: &name})
}

func (s *Service) UpdateEmail(ctx context.Context, actor *auth.Claims, id, email string) (*models.AuthResponse, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperr.New(apperr.Validation, "All fields are required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	oid, err := s.authorize(actor, id)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, apperr.OrPersistence(err, "Unable to update user email")
	}
	if existing != nil && existing.ID != oid {
		return nil, ErrEmailExists
	}
	return s.update(ctx, oid, Update{Email: &email})
}

// UpdatePassword checks the current password for every caller, admins included.
func (s *Service) UpdatePassword(ctx context.Context, actor *auth.Claims, id, oldPassword, newPassword string) (*models.AuthResponse, error) {
	if oldPassword == "" || newPassword == "" {
		return nil, apperr.New(apperr.Validation, "All fields are required")
	}
	oid, err := s.authorize(actor, id)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to update user password")
	}
	ok, err := auth.VerifyPassword(oldPassword, u.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.Validation, "Old password is incorrect")
	}

	hashed, err := auth.HashPassword(newPassword, s.cost)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, oid, Update{Password: &hashed})
}

func (s *Service) update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.AuthResponse, error) {
	u, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, apperr.OrPersistence(err, "Unable to update user")
	}
	return s.authResponse(u)
}

func (s *Service) authorize(actor *auth.Claims, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Wrap(apperr.Validation, "Invalid user id", err)
	}
	if actor == nil {
		return primitive.NilObjectID, apperr.New(apperr.Unauthorized, "Authentication required")
	}
	if !actor.Admin && actor.UserID != oid.Hex() {
		return primitive.NilObjectID, apperr.New(apperr.Forbidden, "You can only change your own account")
	}
	return oid, nil
}

func (s *Service) authResponse(u *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Issue(u.ID.Hex(), u.Name, u.Email, u.Admin)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Admin:       u.Admin,
		CreatedAt:   u.CreatedAt,
		AccessToken: token,
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.New(apperr.Validation, "Email address is invalid")
	}
	return nil
}
