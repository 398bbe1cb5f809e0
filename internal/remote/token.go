package remote

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpired revisa el claim exp sin verificar la firma: el servidor sigue siendo quien
// valida. Tokens opacos o sin exp se dejan pasar.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
