// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"tarot-miniapp-backend/models"
)

// MirroredBotUser matches the JSON response from the bot service.
type MirroredBotUser struct {
	TelegramID int64     `json:"telegram_id"`
	Username   *string   `json:"username,omitempty"`
	FirstName  *string   `json:"first_name,omitempty"`
	PhotoURL   *string   `json:"photo_url,omitempty"`
	IsBanned   bool      `json:"is_banned"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetBotUserChangesResponse is the top-level structure of the bot service response.
type GetBotUserChangesResponse struct {
	Users []MirroredBotUser `json:"users"`
}

type BotUserSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/users"
	serviceToken string
	httpClient   *http.Client
}

// NewBotUserSyncWorker requires the bot service URL and the service token.
func NewBotUserSyncWorker(db *gorm.DB, botServiceBaseURL, endpointPath, serviceToken string) *BotUserSyncWorker {
	return &BotUserSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      botServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *BotUserSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Bot User Sync Worker (bot service → users)…")
	go w.run(ctx)
}

func (w *BotUserSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ Sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Bot User Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt from the local users table.
func (w *BotUserSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM users").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0) // Fallback to epoch if no records or error
	}
	return lastTime
}

// syncBatch fetches user changes from the bot service and upserts the local users table.
func (w *BotUserSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)
	log.Printf("[SYNC] 📡 Fetching user changes from bot service since=%s", sinceStr)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base bot service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}

	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Printf("[SYNC] ❌ Request to %s failed: %v", finalURL, err)
		return fmt.Errorf("HTTP request to bot service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Bot service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return fmt.Errorf("bot service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetBotUserChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode bot service response: %w", err)
	}

	if len(response.Users) == 0 {
		log.Printf("[SYNC] ✅ No user changes received since %s", sinceStr)
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d user(s) from bot service…", len(response.Users))

	var upsertCount, errorCount int
	for _, remoteUser := range response.Users {
		localUser := models.User{
			UserID:    remoteUser.TelegramID,
			Username:  remoteUser.Username,
			FirstName: remoteUser.FirstName,
			PhotoURL:  remoteUser.PhotoURL,
			IsBanned:  remoteUser.IsBanned,
			CreatedAt: remoteUser.CreatedAt,
			UpdatedAt: remoteUser.UpdatedAt,
		}

		// referrer_id, ref_code and messages_balance are owned locally and
		// must never be overwritten by the mirror.
		if err := w.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "first_name", "photo_url", "is_banned", "updated_at",
			}),
		}).Create(&localUser).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert user (telegram_id=%d): %v",
				remoteUser.TelegramID, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d user(s) (%d upserted, %d errors)", len(response.Users), upsertCount, errorCount)
	return nil
}
