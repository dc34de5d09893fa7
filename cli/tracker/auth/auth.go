package auth

/*
Выпуск и проверка токенов водителей.

Токен подписывается HS256 и привязывает соединение ровно к одному
идентификатору транспорта (busId). Любая причина отказа — битый токен,
неверная подпись, истекший срок, пустой busId — сводится к единой ошибке
ErrInvalidToken, чтобы не раскрывать вызывающему, какая именно проверка
не прошла.
*/

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid driver token")

type Claims struct {
	BusID    string `json:"busId"`
	DriverID string `json:"driverId,omitempty"`
	jwt.RegisteredClaims
}

// TokenService выпускает и проверяет токены водителей.
// Безопасен для конкурентного использования.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue выпускает токен для транспорта busID с настроенным сроком действия.
func (s *TokenService) Issue(busID string, driverID string) (string, error) {
	now := time.Now()
	claims := Claims{
		BusID:    busID,
		DriverID: driverID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify проверяет токен и возвращает идентификатор транспорта,
// для которого разрешена публикация позиций.
func (s *TokenService) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.BusID == "" {
		return "", ErrInvalidToken
	}

	return claims.BusID, nil
}
