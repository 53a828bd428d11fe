package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/farmhub/internal/domain/apperr"
	"github.com/mamadbah2/farmhub/internal/domain/models"
	"github.com/mamadbah2/farmhub/internal/repository"
	"github.com/mamadbah2/farmhub/internal/service/ownership"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72
	codeAttempts      = 5
	base36            = "0123456789abcdefghijklmnopqrstuvwxyz"

	errAllFieldsRequired  = "All fields are required"
	errPasswordTooShort   = "Password must be at least 6 characters"
	errPasswordTooLong    = "Password must be at most 72 bytes"
	errUsernameTaken      = "Username already exists"
	errEmailTaken         = "Email already exists"
	errUserNotFound       = "User not found"
	errInvalidCredentials = "Invalid credentials"
	errAuthRequired       = "Authentication required"
	errInvalidToken       = "Invalid or expired token"
	errWrongPassword      = "Current password is incorrect"
	errFarmCodeImmutable  = "Farm code cannot be changed"
)

// Session is returned by every sign-in flow.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterInput is the sign-up payload. FarmName is optional.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FarmName string `json:"farm_name"`
}

// LoginInput accepts either an email or a username as the identifier.
type LoginInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// FederatedInput carries an identity already verified by an external provider.
type FederatedInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
}

// ProfileInput carries the profile fields a user may change. FarmCode is
// accepted only to be rejected.
type ProfileInput struct {
	Username *string `json:"username"`
	FarmName *string `json:"farm_name"`
	Avatar   *string `json:"avatar"`
	FarmCode *string `json:"farm_code"`
}

// PasswordInput is the password change payload.
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Service registers users, signs them in and resolves session tokens.
type Service struct {
	users  repository.UserStore
	farms  repository.FarmStore
	tokens *TokenManager
	cost   int
	logger *zap.Logger
	now    ownership.Clock
	random io.Reader
}

// NewService wires a new authentication service instance.
func NewService(users repository.UserStore, farms repository.FarmStore, tokens *TokenManager, bcryptCost int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:  users,
		farms:  farms,
		tokens: tokens,
		cost:   bcryptCost,
		logger: logger,
		random: rand.Reader,
	}
}

// Register creates a local account and, when a farm name is given, its farm.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FarmName = strings.TrimSpace(in.FarmName)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation(errAllFieldsRequired)
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.Validation(errPasswordTooShort)
	}
	if err := s.ensureAvailable(ctx, "username", in.Username, errUsernameTaken, primitive.NilObjectID); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, "email", in.Email, errEmailTaken, primitive.NilObjectID); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now.Now()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     in.Username,
		Email:        in.Email,
		Password:     hash,
		AuthProvider: models.AuthProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var farm *models.Farm
	if in.FarmName != "" {
		if farm, err = s.newFarm(ctx, user.ID, in.FarmName); err != nil {
			return nil, err
		}
		user.FarmCode, user.FarmName = farm.FarmCode, farm.FarmName
	}

	if farm != nil {
		if err := s.farms.Create(ctx, farm); err != nil {
			return nil, fmt.Errorf("create farm: %w", err)
		}
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.discardFarm(ctx, farm)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Username or email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.Hex()),
		zap.String("username", user.Username),
		zap.Bool("with_farm", farm != nil))
	return s.session(user)
}

// Login verifies a password against the account found by email or username.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	identifier := strings.TrimSpace(in.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(in.Username)
	}
	if identifier == "" || in.Password == "" {
		return nil, apperr.Validation(errAllFieldsRequired)
	}

	filter := bson.M{"username": identifier}
	if strings.Contains(identifier, "@") {
		filter = bson.M{"email": strings.ToLower(identifier)}
	}
	user, err := s.users.FindOne(ctx, filter)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound(errUserNotFound)
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		s.logger.Info("rejected sign-in", zap.String("user_id", user.ID.Hex()))
		return nil, apperr.Auth(errInvalidCredentials)
	}
	return s.session(user)
}

// FederatedSignIn finds the account for an externally verified email or
// creates one with a generated username and an unusable password.
// The email is trusted as given; verifying it with the identity provider is
// the caller's job. Existing local accounts are signed in as well.
func (s *Service) FederatedSignIn(ctx context.Context, in FederatedInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, apperr.Validation("Email is required")
	}

	user, err := s.users.FindOne(ctx, bson.M{"email": email})
	if err == nil {
		if user.AuthProvider != models.AuthProviderGoogle {
			s.logger.Warn("federated sign-in into local account",
				zap.String("user_id", user.ID.Hex()),
				zap.String("auth_provider", string(user.AuthProvider)))
		}
		return s.session(user)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	username, err := s.generateUsername(ctx, in.Name, email)
	if err != nil {
		return nil, err
	}
	throwaway := make([]byte, 16)
	if _, err := io.ReadFull(s.random, throwaway); err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := s.hash(hex.EncodeToString(throwaway))
	if err != nil {
		return nil, err
	}

	now := s.now.Now()
	user = &models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        email,
		Password:     hash,
		Avatar:       strings.TrimSpace(in.Photo),
		AuthProvider: models.AuthProviderGoogle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Username or email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("federated user created", zap.String("user_id", user.ID.Hex()), zap.String("username", username))
	return s.session(user)
}

// Authenticate resolves a presented session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.Auth(errAuthRequired)
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Auth(errInvalidToken)
	}
	id, ok := ownership.ParseID(claims.UserID)
	if !ok {
		return nil, apperr.Auth(errInvalidToken)
	}

	user, err := s.users.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Auth(errUserNotFound)
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Profile returns the stored account of userID.
func (s *Service) Profile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.Get(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound(errUserNotFound)
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes username, avatar and farm name. A farm name given
// to a user without a farm creates the farm.
func (s *Service) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*models.User, error) {
	if in.FarmCode != nil {
		return nil, apperr.Validation(errFarmCodeImmutable)
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	var created *models.Farm
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, apperr.Validation("Username cannot be empty")
		}
		if err := s.ensureAvailable(ctx, "username", username, errUsernameTaken, userID); err != nil {
			return nil, err
		}
		set["username"] = username
	}
	if in.Avatar != nil {
		set["avatar"] = strings.TrimSpace(*in.Avatar)
	}
	if in.FarmName != nil {
		name := strings.TrimSpace(*in.FarmName)
		if name == "" {
			return nil, apperr.Validation("Farm name cannot be empty")
		}
		if created, err = s.applyFarmName(ctx, user, name, set); err != nil {
			return nil, err
		}
	}
	if len(set) == 0 {
		return user, nil
	}

	updated, err := s.users.Update(ctx, userID, set)
	if err != nil {
		s.discardFarm(ctx, created)
	}
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperr.Conflict(errUsernameTaken)
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound(errUserNotFound)
	case err != nil:
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID primitive.ObjectID, in PasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return apperr.Validation("Current password and new password are required")
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
		return apperr.Validation(errWrongPassword)
	}
	if len(in.NewPassword) < minPasswordLength {
		return apperr.Validation(errPasswordTooShort)
	}

	hash, err := s.hash(in.NewPassword)
	if err != nil {
		return err
	}
	if _, err := s.users.Update(ctx, userID, bson.M{"password": hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("password changed", zap.String("user_id", userID.Hex()))
	return nil
}

// TokenTTL is the lifetime of issued session tokens.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// applyFarmName renames the user's farm or creates one. A created farm is
// returned so the caller can discard it if the user update fails.
func (s *Service) applyFarmName(ctx context.Context, user *models.User, name string, set bson.M) (*models.Farm, error) {
	if user.FarmCode != "" {
		err := s.farms.Rename(ctx, user.ID, name)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("rename farm: %w", err)
		}
		if err == nil {
			set["farm_name"] = name
			return nil, nil
		}
		// The mirrored code has no farm behind it; recreate one below.
	}

	farm, err := s.newFarm(ctx, user.ID, name)
	if err != nil {
		return nil, err
	}
	if err := s.farms.Create(ctx, farm); err != nil {
		return nil, fmt.Errorf("create farm: %w", err)
	}
	set["farm_name"] = farm.FarmName
	set["farm_code"] = farm.FarmCode
	return farm, nil
}

// discardFarm removes a farm whose owning user write failed.
func (s *Service) discardFarm(ctx context.Context, farm *models.Farm) {
	if farm == nil {
		return
	}
	if err := s.farms.Delete(ctx, farm.ID); err != nil {
		s.logger.Error("failed to discard orphaned farm",
			zap.String("farm_id", farm.ID.Hex()),
			zap.String("farm_code", farm.FarmCode),
			zap.Error(err))
	}
}

func (s *Service) newFarm(ctx context.Context, owner primitive.ObjectID, name string) (*models.Farm, error) {
	code, err := s.generateFarmCode(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now.Now()
	return &models.Farm{
		ID:        primitive.NewObjectID(),
		FarmName:  name,
		FarmCode:  code,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Service) generateFarmCode(ctx context.Context) (string, error) {
	buf := make([]byte, 4)
	for attempt := 0; attempt < codeAttempts; attempt++ {
		if _, err := io.ReadFull(s.random, buf); err != nil {
			return "", fmt.Errorf("generate farm code: %w", err)
		}
		code := hex.EncodeToString(buf)
		taken, err := s.farms.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check farm code: %w", err)
		}
		if !taken {
			return code, nil
		}
		s.logger.Debug("farm code collision", zap.String("code", code), zap.Int("attempt", attempt+1))
	}
	return "", errors.New("could not allocate a unique farm code")
}

func (s *Service) generateUsername(ctx context.Context, name, email string) (string, error) {
	base := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if base == "" {
		base = strings.SplitN(email, "@", 2)[0]
	}

	suffix := make([]byte, 4)
	for attempt := 0; attempt < codeAttempts; attempt++ {
		if _, err := io.ReadFull(s.random, suffix); err != nil {
			return "", fmt.Errorf("generate username: %w", err)
		}
		for i, b := range suffix {
			suffix[i] = base36[int(b)%len(base36)]
		}
		candidate := base + string(suffix)
		taken, err := s.users.Exists(ctx, bson.M{"username": candidate}, primitive.NilObjectID)
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", errors.New("could not allocate a unique username")
}

func (s *Service) ensureAvailable(ctx context.Context, field, value, message string, exclude primitive.ObjectID) error {
	taken, err := s.users.Exists(ctx, bson.M{field: value}, exclude)
	if err != nil {
		return fmt.Errorf("check %s: %w", field, err)
	}
	if taken {
		return apperr.Conflict(message)
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) > maxPasswordLength {
		return "", apperr.Validation(errPasswordTooLong)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}
