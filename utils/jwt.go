package utils

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WebAppLinker signs short-lived tokens that let an employee open the web
// app from chat without re-authenticating. The token service proper is an
// external collaborator; this only issues the URL-embedded token.
type WebAppLinker struct {
	secretKey []byte
	baseURL   string
	tokenTTL  time.Duration
}

type WebAppClaims struct {
	UID         string `json:"uid"`
	ProjectName string `json:"projectName"`
	jwt.RegisteredClaims
}

func NewWebAppLinker(secretKey, baseURL string) *WebAppLinker {
	return &WebAppLinker{
		secretKey: []byte(secretKey),
		baseURL:   baseURL,
		tokenTTL:  15 * time.Minute,
	}
}

// BuildURL returns the web-app URL carrying a signed token for the employee.
func (w *WebAppLinker) BuildURL(uid, projectName string) (string, error) {
	if w.baseURL == "" {
		return "", fmt.Errorf("web app URL is not configured")
	}

	now := time.Now()
	claims := WebAppClaims{
		UID:         uid,
		ProjectName: projectName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(w.tokenTTL)),
			Issuer:    "geoclock",
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(w.secretKey)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s?token=%s", w.baseURL, url.QueryEscape(token)), nil
}
