package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
	"github.com/craftwise/craftwise-backend/internal/requestdata"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type JWTClaims struct {
	OrgID     string `json:"org_id,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	// OrgName creates a fresh organization with this user as admin.
	// OrgID joins an existing one as member. Exactly one is required.
	OrgName string     `json:"org_name,omitempty"`
	OrgID   *uuid.UUID `json:"org_id,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	orgRepo      repos.OrganizationRepo
	jwtSecretKey string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	orgRepo repos.OrganizationRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:           db,
		log:          baseLog.With("service", "AuthService"),
		userRepo:     userRepo,
		orgRepo:      orgRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

func (as *authService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, fmt.Errorf("an email is required to register")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("a password is required to register")
	}
	if (input.OrgName == "") == (input.OrgID == nil) {
		return nil, fmt.Errorf("exactly one of org_name or org_id is required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: string(hashed),
	}
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if existing, err := as.userRepo.GetByEmail(ctx, tx, email); err == nil && existing != nil {
			return fmt.Errorf("email is already in use")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check user email: %w", err)
		}

		if input.OrgName != "" {
			org := &domain.Organization{Name: strings.TrimSpace(input.OrgName)}
			if err := as.orgRepo.Create(ctx, tx, org); err != nil {
				return fmt.Errorf("failed to create organization: %w", err)
			}
			user.OrgID = &org.ID
			user.Role = domain.RoleAdmin
		} else {
			org, err := as.orgRepo.GetByID(ctx, tx, *input.OrgID)
			if err != nil {
				return fmt.Errorf("organization not found")
			}
			user.OrgID = &org.ID
			user.Role = domain.RoleMember
		}
		return as.userRepo.Create(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("user registered", "user_id", user.ID, "org_id", user.OrgID)
	return user, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return TokenPair{}, fmt.Errorf("email and password are required to login")
	}
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return TokenPair{}, fmt.Errorf("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, fmt.Errorf("invalid email or password")
	}
	return as.issueTokens(user)
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := as.parseToken(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return TokenPair{}, fmt.Errorf("not a refresh token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return TokenPair{}, fmt.Errorf("invalid user id in token: %w", err)
	}
	user, err := as.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to load user for refresh: %w", err)
	}
	return as.issueTokens(user)
}

// SetContextFromToken resolves the bearer token into request data. A
// user detached from any organization cannot act on tenant-scoped
// resources and is rejected here.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims, err := as.parseToken(tokenString)
	if err != nil {
		return ctx, err
	}
	if claims.TokenType != tokenTypeAccess {
		return ctx, fmt.Errorf("not an access token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return ctx, fmt.Errorf("token carries no organization")
	}
	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		OrgID:       orgID,
		Role:        claims.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) issueTokens(user *domain.User) (TokenPair, error) {
	access, err := as.signToken(user, tokenTypeAccess, as.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := as.signToken(user, tokenTypeRefresh, as.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (as *authService) signToken(user *domain.User, tokenType string, ttl time.Duration) (string, error) {
	var orgID string
	if user.OrgID != nil {
		orgID = user.OrgID.String()
	}
	claims := JWTClaims{
		OrgID:     orgID,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) parseToken(tokenString string) (*JWTClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	return claims, nil
}
