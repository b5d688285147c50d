package httpapi

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	claimsContextKey = "auth_claims"
	bearerPrefix     = "Bearer "
	roleAdmin        = "admin"
	roleEditor       = "editor"
)

var errMissingToken = errors.New("missing bearer token")

// Claims is the principal carried by the bearer token.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// CanEdit reports whether the principal may change collection data.
func (claims *Claims) CanEdit() bool {
	return slices.Contains(claims.Roles, roleAdmin) || slices.Contains(claims.Roles, roleEditor)
}

type tokenValidator struct {
	signingKey []byte
	parser     *jwt.Parser
}

func newTokenValidator(cfg Config) *tokenValidator {
	return &tokenValidator{
		signingKey: []byte(cfg.JWTSigningKey),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.JWTIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

func (validator *tokenValidator) validate(header string) (*Claims, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, errMissingToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return nil, errMissingToken
	}
	claims := &Claims{}
	if _, err := validator.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return validator.signingKey, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// middleware rejects requests without a valid bearer token and stores the claims on the context.
func (validator *tokenValidator) middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, err := validator.validate(ctx.GetHeader("Authorization"))
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid or missing token"))
			return
		}
		ctx.Set(claimsContextKey, claims)
		ctx.Next()
	}
}

func requireEditor() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims := getClaims(ctx)
		if claims == nil || !claims.CanEdit() {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "editor role required"))
			return
		}
		ctx.Next()
	}
}

func getClaims(ctx *gin.Context) *Claims {
	claimsValue, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*Claims)
	return claims
}
