package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/segyhp/microloan-ledger/internal/config"
	"github.com/segyhp/microloan-ledger/internal/domain"
	"github.com/segyhp/microloan-ledger/pkg/response"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type contextKey string

const actorKey = contextKey("actor")

// ActorClaims is the token body: the subject is the actor id.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ActorFromContext returns the actor resolved by Authenticate, if any.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Authenticate resolves the calling actor. With auth enabled every request
// needs a valid HMAC-signed bearer token. With auth disabled the actor may be
// passed in the X-Actor-ID and X-Actor-Role headers, and requests without them
// continue anonymously.
func Authenticate(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "AuthMiddleware")

	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get(HeaderActorID) == "" {
					next.ServeHTTP(w, r)
					return
				}
				actor, err := actorFromHeaders(r)
				if err != nil {
					logger.WarnContext(r.Context(), "Rejected actor headers", slog.Any("error", err))
					response.Unauthorized(w, "Invalid actor headers")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
			})
		}
	}

	secret := []byte(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := actorFromToken(r, secret)
			if err != nil {
				logger.WarnContext(r.Context(), "Unauthenticated request",
					slog.String("path", r.URL.Path), slog.Any("error", err))
				msg := "Unauthorized"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "Token has expired"
				}
				response.Unauthorized(w, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireActor rejects requests that reached it without an actor.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFromContext(r.Context()); !ok {
			response.Unauthorized(w, "An authenticated actor is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFromToken(r *http.Request, secret []byte) (domain.Actor, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return domain.Actor{}, errors.New("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return domain.Actor{}, errors.New("authorization header format must be Bearer {token}")
	}

	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return domain.Actor{}, err
	}
	if !token.Valid {
		return domain.Actor{}, errors.New("invalid token")
	}

	return parseActor(claims.Subject, claims.Role)
}

func actorFromHeaders(r *http.Request) (domain.Actor, error) {
	return parseActor(r.Header.Get(HeaderActorID), r.Header.Get(HeaderActorRole))
}

func parseActor(id, role string) (domain.Actor, error) {
	actorID, err := uuid.Parse(id)
	if err != nil {
		return domain.Actor{}, errors.New("actor id must be a uuid")
	}
	actor := domain.Actor{ID: actorID, Role: domain.ActorRole(strings.ToLower(role))}
	if err := actor.Validate(); err != nil {
		return domain.Actor{}, err
	}
	return actor, nil
}
