package auth

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	// ErrTokenMalformed - токен не удалось разобрать
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrTokenExpired - срок действия токена истёк
	ErrTokenExpired = errors.New("token is expired")
	// ErrTokenInvalid - подпись, издатель или аудитория не прошли проверку
	ErrTokenInvalid = errors.New("token validation failed")
)

// Claims содержит поля access-токена провайдера идентификации
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity - результат проверки токена
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// TokenVerifier проверяет HS256 access-токены, выпущенные внешним провайдером
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenVerifier создает верификатор. issuer и audience проверяются, только если заданы.
func NewTokenVerifier(secret, issuer, audience string) (*TokenVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required for TokenVerifier")
	}
	return &TokenVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}, nil
}

// Verify разбирает и проверяет токен, возвращая идентичность пользователя
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			log.Printf("[JWT] Неожиданный метод подписи: %v", token.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrTokenExpired
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, ErrTokenInvalid
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		log.Printf("[JWT] Неверный издатель токена: %s", claims.Issuer)
		return nil, ErrTokenInvalid
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		log.Printf("[JWT] Неверная аудитория токена: %v", claims.Audience)
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		log.Printf("[JWT] Subject токена не является UUID: %q", claims.Subject)
		return nil, ErrTokenInvalid
	}

	return &Identity{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
