package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTService struct {
	secretKey      []byte
	deviceTokenTTL time.Duration
}

// Claims carries the authenticated identity every repository read/write is
// scoped to. Widget tokens identify the device's lock-screen surface.
type Claims struct {
	UserID    string `json:"userId"`
	DeviceID  string `json:"deviceId"`
	TokenType string `json:"tokenType"` // device, widget
	jwt.RegisteredClaims
}

func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey:      []byte(secretKey),
		deviceTokenTTL: 30 * 24 * time.Hour,
	}
}

// GenerateDeviceToken issues the long-lived token the app and its widget
// extension present on every request.
func (j *JWTService) GenerateDeviceToken(userID, deviceID, tokenType string) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID:    userID,
		DeviceID:  deviceID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.deviceTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "aegis",
			Subject:   userID,
			ID:        GenerateUUID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func (j *JWTService) ExtractUserID(tokenString string) (string, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}
