package srv

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer signs reconnect tokens with a per-process random key. Tokens
// live only as long as the process, same as the rooms they refer to.
type tokenIssuer struct {
	key    []byte
	issuer string
}

func newTokenIssuer() *tokenIssuer {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return &tokenIssuer{key: key, issuer: "wizduel"}
}

// Issue mints the stable reconnect secret for a player slot in a room.
func (t *tokenIssuer) Issue(roomCode string, slot int) string {
	claims := jwt.MapClaims{
		"iss":  t.issuer,
		"room": roomCode,
		"slot": float64(slot),
		"iat":  time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := tok.SignedString(t.key)
	return signed
}

// Verify checks signature and room binding. The caller still matches the
// token string against the stored player secret; this rejects forgeries and
// tokens replayed against the wrong room before any lookup happens.
func (t *tokenIssuer) Verify(token, roomCode string) error {
	if token == "" {
		return errors.New("missing token")
	}
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("bad claims")
	}
	if room, _ := claims["room"].(string); room != roomCode {
		return errors.New("token is for another room")
	}
	return nil
}
