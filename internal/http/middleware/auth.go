package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"foodshare/internal/model"
)

// ActorLocalKey is the Fiber locals key holding the resolved model.Actor.
const ActorLocalKey = "actor"

// ErrInvalidToken is passed to the auth failure handler for any bearer token
// that cannot be verified.
var ErrInvalidToken = errors.New("invalid bearer token")

// ErrNoSigningSecret is returned by the key lookup when Auth was built
// without a secret. Every bearer token is then rejected.
var ErrNoSigningSecret = errors.New("auth: signing secret not configured")

// Claims is the token payload issued by the identity service.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret []byte
	// Issuer is checked against iss when non-empty.
	Issuer string
	// OnError writes the rejection response.
	OnError func(c *fiber.Ctx, err error) error
}

// Auth resolves the caller from an HS256 bearer token. Requests without an
// Authorization header continue as model.Anonymous; route handlers decide
// whether that is acceptable. With an empty Secret no token verifies.
func Auth(cfg AuthConfig) fiber.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	onError := cfg.OnError
	if onError == nil {
		onError = func(c *fiber.Ctx, err error) error {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
	}

	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header == "" {
			c.Locals(ActorLocalKey, model.Anonymous)
			return c.Next()
		}

		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			return onError(c, ErrInvalidToken)
		}

		var claims Claims
		_, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
			if len(cfg.Secret) == 0 {
				return nil, ErrNoSigningSecret
			}
			return cfg.Secret, nil
		})
		if err != nil || strings.TrimSpace(claims.Subject) == "" {
			return onError(c, ErrInvalidToken)
		}

		c.Locals(ActorLocalKey, model.Actor{
			ID:       claims.Subject,
			Username: claims.Username,
			Role:     claims.Role,
			IsAdmin:  claims.IsAdmin,
		})
		return c.Next()
	}
}

// ActorFromCtx returns the actor stored by Auth, or model.Anonymous.
func ActorFromCtx(c *fiber.Ctx) model.Actor {
	if a, ok := c.Locals(ActorLocalKey).(model.Actor); ok {
		return a
	}
	return model.Anonymous
}
