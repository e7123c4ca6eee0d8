package cascade

import (
	"encoding/base64"
	"fmt"
)

const (
	Basic  = "Basic"
	Bearer = "Bearer"
	APIKey = "apikey"
)

type AuthConfig struct {
	Type     string
	Username string
	Password string
	Token    string
	APIKey   string
	// APIKeyHeader defaults to "apikey".
	APIKeyHeader string
}

// authHook returns a pre-request hook adding the configured credentials.
func (ac *AuthConfig) authHook() (RequestHook, error) {
	switch ac.Type {
	case Basic:
		auth := base64.StdEncoding.EncodeToString([]byte(ac.Username + ":" + ac.Password))
		return func(req *Request) error {
			req.Headers.Set("Authorization", "Basic "+auth)
			return nil
		}, nil
	case Bearer:
		return func(req *Request) error {
			req.Headers.Set("Authorization", "Bearer "+ac.Token)
			return nil
		}, nil
	case APIKey:
		header := getOrDefault(ac.APIKeyHeader, APIKey)
		return func(req *Request) error {
			req.Headers.Set(header, ac.APIKey)
			return nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported auth type %q", ac.Type)
	}
}
