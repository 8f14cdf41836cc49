package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/requestdata"
)

// Client is one API client allowed to call the service (Offermart pushes,
// admin tooling). SecretHash is a bcrypt hash of the shared secret.
type Client struct {
	ID         string
	SecretHash string
	Scopes     []string
}

type AuthService interface {
	// IssueToken exchanges client credentials for a short-lived HS256 token.
	IssueToken(ctx context.Context, clientID, clientSecret string) (string, time.Time, error)
	// SetContextFromToken verifies the token and attaches the client
	// identity to the request context.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetTokenTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
	tokenTTL     time.Duration
	clients      map[string]Client
}

func NewAuthService(log *logger.Logger, jwtSecretKey string, tokenTTL time.Duration, clients []Client) AuthService {
	serviceLog := log.With("service", "AuthService")
	byID := make(map[string]Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	return &authService{
		log:          serviceLog,
		jwtSecretKey: jwtSecretKey,
		tokenTTL:     tokenTTL,
		clients:      byID,
	}
}

type serviceClaims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

func (as *authService) IssueToken(ctx context.Context, clientID, clientSecret string) (string, time.Time, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientSecret == "" {
		return "", time.Time{}, fmt.Errorf("client_id and client_secret required")
	}
	client, ok := as.clients[clientID]
	if !ok {
		return "", time.Time{}, fmt.Errorf("invalid client credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(clientSecret)); err != nil {
		return "", time.Time{}, fmt.Errorf("invalid client credentials")
	}

	expiresAt := time.Now().Add(as.tokenTTL)
	claims := serviceClaims{
		Scopes: client.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   client.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error signing token: %w", err)
	}
	return signed, expiresAt, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &serviceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return ctx, fmt.Errorf("invalid token")
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		ClientID:    claims.Subject,
		Scopes:      claims.Scopes,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetTokenTTL() time.Duration {
	return as.tokenTTL
}
