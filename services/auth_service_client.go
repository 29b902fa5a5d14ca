// tarot-miniapp-backend/services/auth_service_client.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// AuthServiceClient talks to the bot's auth service, which owns Telegram
// initData verification and session tokens. This backend never checks
// signatures itself — it only asks the auth service who a token belongs to.
type AuthServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type ValidateResponse struct {
	UserID   int64    `json:"user_id"`
	IsBanned bool     `json:"is_banned"`
	Roles    []string `json:"roles"`
}

func NewAuthServiceClient(baseURL, token string) *AuthServiceClient {
	return &AuthServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ValidateSession calls /validate on the auth service with a Mini App session
// token and returns the resolved Telegram user.
func (c *AuthServiceClient) ValidateSession(sessionToken string) (*ValidateResponse, error) {
	url := fmt.Sprintf("%s/auth/validate", c.BaseURL)

	reqBody := map[string]interface{}{
		"session_token": sessionToken,
	}
	jsonData, _ := json.Marshal(reqBody)

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("AuthService /validate returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("auth validation failed: %d", resp.StatusCode)
	}

	var out ValidateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}
