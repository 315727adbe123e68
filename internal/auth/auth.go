package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/arn384/Buy-Sell-Website/internal/models"
)

// ErrInvalidCredentials is returned for a wrong email or password; callers
// cannot tell which.
var ErrInvalidCredentials = errors.New("incorrect email or password")

// UserStore is the persistence surface auth needs
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthService handles registration, login, and token verification
type AuthService struct {
	Store      UserStore
	secret     []byte
	emailRegex *regexp.Regexp
}

// NewAuthService creates a new auth service. Registration is restricted to
// email addresses under emailDomain.
func NewAuthService(store UserStore, secret, emailDomain string) *AuthService {
	return &AuthService{
		Store:      store,
		secret:     []byte(secret),
		emailRegex: regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@` + regexp.QuoteMeta(emailDomain) + `$`),
	}
}

// RegisterInput carries the fields collected at signup
type RegisterInput struct {
	FirstName     string
	LastName      string
	Email         string
	Age           int
	ContactNumber string
	Password      string
}

// Register creates a new user with a hashed password
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	// Validate input
	if in.FirstName == "" || in.LastName == "" {
		return nil, fmt.Errorf("first and last name required")
	}
	if in.Password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if len(in.Password) > 100 {
		return nil, fmt.Errorf("password too long (max 100 characters)")
	}
	if !s.emailRegex.MatchString(in.Email) {
		return nil, models.ErrInvalidEmail
	}

	existing, err := s.Store.GetUserByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, models.ErrEmailTaken
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.Store.CreateUser(ctx, &models.User{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		Age:           in.Age,
		ContactNumber: in.ContactNumber,
		PasswordHash:  string(hashedPassword),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and generates a JWT
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return tokenString, user, nil
}

// GetUserFromToken extracts the user ID from a JWT
func (s *AuthService) GetUserFromToken(tokenString string) (int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}
	return int(userID), nil
}
