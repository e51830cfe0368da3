package app

import (
	"errors"
	"time"

	. "outpass-control/internal/config"
	"outpass-control/internal/storage"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrNonValidToken    = errors.New("token did not pass validation")
	ErrInvalidClaimType = errors.New("invalid claim type")
)

var tokenSignatureAlg = jwt.SigningMethodHS256

// SessionClaim is the browser session token. Role and department ride in
// the claim so request handlers can scope without a user lookup.
type SessionClaim struct {
	UserID   int64        `json:"uid"`
	Username string       `json:"username"`
	Role     storage.Role `json:"role"`
	DeptID   *int64       `json:"dept_id,omitempty"`
	jwt.RegisteredClaims
}

func NewSessionClaim(user *storage.User) SessionClaim {
	ttl := uint(Cfg.SessionTTL) * 3600
	return SessionClaim{
		UserID:           user.ID,
		Username:         user.Username,
		Role:             user.Role,
		DeptID:           user.DeptID,
		RegisteredClaims: mustCreateRegisteredClaim(ttl),
	}
}

func DecodeSessionJWT(tokenString string) (*SessionClaim, error) {
	return decodeJWT(tokenString, &SessionClaim{})
}

// StationProvisionClaim authorizes completing a gate station registration.
type StationProvisionClaim struct {
	StationID string `json:"station_id"`
	ClientIP  string `json:"client_ip"`
	jwt.RegisteredClaims
}

// Station provision tokens are short-lived; the claim pins the client IP
// to prevent hijacking.
func NewStationProvisionClaim(stationId string, clientIP string) StationProvisionClaim {
	var ttl uint = 5 * 60
	return StationProvisionClaim{
		StationID:        stationId,
		ClientIP:         clientIP,
		RegisteredClaims: mustCreateRegisteredClaim(ttl),
	}
}

func DecodeStationProvisionJWT(tokenString string) (*StationProvisionClaim, error) {
	return decodeJWT(tokenString, &StationProvisionClaim{})
}

func mustCreateRegisteredClaim(ttl uint) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		ExpiresAt: jwtExpiry(ttl),
	}
}

// Convert TTL to time in future
func tokenTTL(ttl uint) time.Time {
	if ttl <= 0 {
		panic("invalid token TTL")
	}
	return time.Now().UTC().Add(time.Duration(ttl) * time.Second)
}

func jwtExpiry(ttl uint) *jwt.NumericDate {
	expiry := tokenTTL(ttl)
	return jwt.NewNumericDate(expiry)
}

// Generic JWT token generation function
func GenerateJWT(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(tokenSignatureAlg, claims)
	JWTSecret := []byte(Cfg.Secret)
	return token.SignedString(JWTSecret)
}

func decodeJWT[T jwt.Claims](tokenString string, claimsType T) (T, error) {
	var zero T

	parsedToken, err := jwt.ParseWithClaims(tokenString, claimsType, func(token *jwt.Token) (interface{}, error) {
		JWTSecret := []byte(Cfg.Secret)
		return JWTSecret, nil
	}, jwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}))

	if err != nil {
		return zero, err
	} else if parsedToken == nil || !parsedToken.Valid {
		return zero, ErrNonValidToken
	} else if claims, ok := parsedToken.Claims.(T); ok {
		return claims, nil
	}

	return zero, ErrInvalidClaimType
}
