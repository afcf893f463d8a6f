// Package auth 提供無狀態的 JWT 身份憑證。
// 憑證只攜帶帳號，遊戲內的席位綁定由伺服器自行維護。
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("無效的身份憑證")

// Manager 以 HS256 簽發與驗證憑證
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Generate 簽發一張以帳號為主體的憑證
func (m *Manager) Generate(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return token.SignedString(m.secret)
}

// Verify 驗證憑證並取回帳號
func (m *Manager) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || c.Username == "" {
		return "", ErrInvalidToken
	}
	return c.Username, nil
}
