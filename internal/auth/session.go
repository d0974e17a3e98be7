package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/speakify/internal/models"
)

var (
	ErrSignedOut = errors.New("not signed in")
	ErrExpired   = errors.New("session expired")
)

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Session holds the bearer token used against the Speakify API. When secret is
// empty the token is decoded without signature verification; the API remains
// the authority on whether it is accepted.
type Session struct {
	secret []byte
	now    func() time.Time

	mu       sync.RWMutex
	token    string
	onLogout []func(context.Context)
}

func NewSession(token, secret string) *Session {
	s := &Session{token: strings.TrimSpace(token), now: time.Now}
	if secret != "" {
		s.secret = []byte(secret)
	}
	return s
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Login replaces the token after checking that it decodes to a user.
func (s *Session) Login(token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	user, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return user, nil
}

func (s *Session) CurrentUser() (*models.User, error) {
	return s.parse(s.Token())
}

func (s *Session) UserID() *uuid.UUID {
	u, err := s.CurrentUser()
	if err != nil {
		return nil
	}
	id := u.ID
	return &id
}

// OnLogout registers fn to run after the token is cleared.
func (s *Session) OnLogout(fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	hooks := append([]func(context.Context){}, s.onLogout...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}

func (s *Session) parse(tokenStr string) (*models.User, error) {
	if tokenStr == "" {
		return nil, ErrSignedOut
	}

	claims := &Claims{}
	if s.secret != nil {
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.now))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		if err != nil || !token.Valid {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(s.now()) {
			return nil, ErrExpired
		}
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token: %w", err)
	}
	return &models.User{ID: userID, Email: claims.Email, DisplayName: claims.Name}, nil
}
