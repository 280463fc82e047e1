package usecases

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"telemetry-server/apperr"
	"telemetry-server/auth"
	"telemetry-server/db"
	"telemetry-server/entities"
	applog "telemetry-server/logger"
	"telemetry-server/repositories"
)

type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}

type UserUseCase struct {
	db  db.Database
	jwt *auth.JWTService
	log *applog.Logger
}

func NewUserUseCase(database db.Database, jwt *auth.JWTService, log *applog.Logger) *UserUseCase {
	return &UserUseCase{db: database, jwt: jwt, log: log}
}

func (uc *UserUseCase) Create(ctx context.Context, req CreateUserRequest) (*entities.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.InvalidArgument("invalid email %q", req.Email)
	}
	if req.Role == "" {
		req.Role = entities.RoleCustomer
	}
	if !entities.ValidRole(req.Role) {
		return nil, apperr.InvalidArgument("unknown role %q", req.Role)
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, apperr.InvalidArgument("%s", err.Error())
		}
		return nil, apperr.Internal("could not hash password", err)
	}

	user := &entities.User{
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	err = uc.db.Transaction(ctx, func(tx db.Database) error {
		repos := repositories.New(tx)
		_, err := repos.Users.GetByEmail(ctx, email)
		if err == nil {
			return apperr.Conflict("email %q is already registered", email)
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		return repos.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login exchanges email and password for a bearer token.
func (uc *UserUseCase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := repositories.New(uc.db).Users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	token, expires, err := uc.jwt.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Internal("could not issue token", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}
