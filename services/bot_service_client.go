// tarot-miniapp-backend/services/bot_service_client.go
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// BotServiceClient asks the bot service about state only the bot can see:
// channel membership and whether the user allowed the bot to message them.
type BotServiceClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type SubscriptionStatus struct {
	ChannelSubscribed    bool `json:"channel_subscribed"`
	NotificationsEnabled bool `json:"notifications_enabled"`
}

func NewBotServiceClient(baseURL, token string) *BotServiceClient {
	return &BotServiceClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetSubscriptionStatus fetches the user's channel/notification flags.
func (c *BotServiceClient) GetSubscriptionStatus(userID int64) (*SubscriptionStatus, error) {
	url := fmt.Sprintf("%s/api/v1/public/users/%d/subscriptions", c.BaseURL, userID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("BotService subscriptions returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("subscription check failed: %d", resp.StatusCode)
	}

	var out SubscriptionStatus
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
