package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"tarot-miniapp-backend/services"
)

// SettledPayment matches the JSON the payment service returns for each
// invoice that moved to a final state since the requested cutoff.
type SettledPayment struct {
	PurchaseID string    `json:"purchase_id"`
	Status     string    `json:"status"` // "paid" or "cancelled"
	PaidAt     time.Time `json:"paid_at"`
}

// PaymentSyncClient polls the payment service for settled invoices and
// applies them to local purchases.
type PaymentSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Purchases  *services.PurchaseService
}

func NewPaymentSyncClient(purchases *services.PurchaseService) *PaymentSyncClient {
	baseURL := os.Getenv("PAYMENT_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PAYMENT_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("TASKS_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("TASKS_SERVICE_TOKEN environment variable is required for payment sync")
	}

	return &PaymentSyncClient{
		BaseURL:   baseURL,
		Token:     token,
		Purchases: purchases,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *PaymentSyncClient) GetSettledPayments(ctx context.Context, since time.Time) ([]SettledPayment, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/payments/settled", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payment service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("payment service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Payments []SettledPayment `json:"payments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode payment service response: %w", err)
	}

	return response.Payments, nil
}

// PollPayments applies settled invoices to local purchases on a ticker.
// MarkPaid is idempotent, so re-reading an already applied window is safe.
func PollPayments(ctx context.Context, client *PaymentSyncClient, pollInterval time.Duration) {
	log.Println("Starting payment polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Payment polling stopped.")
			return
		case <-ticker.C:
			logTime := time.Now().UTC()
			log.Printf("Polling for settled payments since %s...", lastSyncTime.Format(time.RFC3339))

			payments, err := client.GetSettledPayments(ctx, lastSyncTime)
			if err != nil {
				log.Printf("❌ Error polling payments: %v", err)
				continue
			}

			count := len(payments)
			log.Printf("📥 Received %d settled payment(s) from payment service.", count)

			if count == 0 {
				log.Println("➡️ No new settled payments.")
				continue
			}

			applied, failed := 0, 0
			for _, p := range payments {
				if p.Status != "paid" {
					continue
				}
				if err := client.Purchases.MarkPaid(p.PurchaseID, p.PaidAt); err != nil {
					failed++
					log.Printf("❌ Failed to apply payment for purchase %s: %v", p.PurchaseID, err)
					continue
				}
				applied++
			}

			if failed > 0 {
				// Do NOT advance lastSyncTime — retry the same window next tick.
				log.Printf("⚠️ Applied %d payment(s), %d failed; window will be retried.", applied, failed)
				continue
			}

			lastSyncTime = logTime
			log.Printf("✅ Applied %d payment(s).", applied)
		}
	}
}
