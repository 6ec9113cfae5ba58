package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
)

const (
	contextTokenKey    = "operatorToken"
	contextOperatorKey = "operator"
)

// Claims represents the authorization claims transmitted via a JWT. The subject is the operator id.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func GetOperatorClaims(op core.Operator, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(op.ID),
			ExpiresAt: now.Add(conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: op.Username,
		IsAdmin:  op.IsAdmin,
	}
}

// GenerateToken generates a signed JWT token string representing the operator Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextOperator(ctx echo.Context) (core.Operator, error) {
	if op, ok := ctx.Get(contextOperatorKey).(core.Operator); ok {
		return op, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Operator{}, err
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id <= 0 {
		return core.Operator{}, errUnauthorized
	}
	op := core.Operator{ID: id, Username: claims.Username, IsAdmin: claims.IsAdmin}
	ctx.Set(contextOperatorKey, op)
	return op, nil
}

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		op, err := getContextOperator(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context operator")
		}
		if op.IsAdmin {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
