package logic

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"

	"github.com/Pulau-Komodo/chatbot/config"
)

// UserLogic handles transport authentication: a client proves control of an
// ed25519 key and gets a JWT bound to the platform user id it acts for.
type UserLogic struct {
	cfg *config.Config
}

func NewUserLogic(cfg *config.Config) *UserLogic {
	return &UserLogic{cfg: cfg}
}

func (l *UserLogic) verifySignature(publicKey, message, signature string) (bool, error) {
	pubKeyBytes, err := base58.Decode(publicKey)
	if err != nil {
		return false, err
	}
	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return false, fmt.Errorf("ed25519: bad public key length: %d", len(pubKeyBytes))
	}
	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pubKeyBytes, []byte(message), sigBytes), nil
}

// Login verifies the signature and issues a JWT carrying the user id.
func (l *UserLogic) Login(user uint64, publicKey, message, signature string) (string, time.Time, error) {
	valid, err := l.verifySignature(publicKey, message, signature)
	if err != nil || !valid {
		return "", time.Time{}, errors.New("invalid signature")
	}

	expireAt := time.Now().Add(time.Duration(l.cfg.Auth.ExpHour) * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": user,
		"exp":  expireAt.Unix(),
	})
	tokenString, err := token.SignedString([]byte(l.cfg.Auth.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expireAt, nil
}
