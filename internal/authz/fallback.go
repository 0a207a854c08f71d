package authz

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// fallback verifies the credential locally as an HS256 token and builds a
// best-effort context from its claims. It only runs in lenient mode when the
// identity service cannot answer.
func (r *Resolver) fallback(credential string) (Context, error) {
	token, err := jwt.Parse(credential, func(_ *jwt.Token) (any, error) {
		return []byte(r.cfg.TokenSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Context{}, fmt.Errorf("%w: local verification failed", ErrInvalidCredential)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Context{}, fmt.Errorf("%w: unexpected claims shape", ErrInvalidCredential)
	}

	role := "user"
	if v, ok := claims["role"].(string); ok && v != "" {
		role = v
	}

	agreement, _ := claims["agreement_accepted"].(bool)

	return Context{
		UserID:            claimUserID(claims),
		Role:              role,
		AgreementAccepted: agreement,
	}, nil
}

// claimUserID tries user_id, id, and sub in order, tolerating numeric and
// numeric-string encodings. An unusable claim yields zero rather than a
// rejection.
func claimUserID(claims jwt.MapClaims) int {
	for _, key := range []string{"user_id", "id", "sub"} {
		switch v := claims[key].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}

	return 0
}
