package jwt

import (
	"context"
	"crypto/rsa"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/membertown/mt-allocation/pkg/errors"
	"github.com/membertown/mt-allocation/pkg/status"
)

type JSONWebToken struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

func NewJSONWebToken(privateKeyPEM, publicKeyPEM []byte) *JSONWebToken {
	j := &JSONWebToken{}

	if pk, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM); err == nil {
		j.privateKey = pk
	}
	if pub, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM); err == nil {
		j.publicKey = pub
	}

	return j
}

func (j *JSONWebToken) Sign(ctx context.Context, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(j.privateKey)
	if err != nil {
		return "", errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while signing the token")
	}

	return signed, nil
}

func (j *JSONWebToken) Parse(ctx context.Context, tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return j.publicKey, nil
	})
	if err != nil || !token.Valid {
		return errors.New(http.StatusUnauthorized, status.UNAUTHORIZED, "invalid token")
	}

	return nil
}
