package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"lunetier_back_end/internal/models"
)

// ChatNotifier pousse les nouvelles commandes vers le webhook du canal
// d'équipe (format "incoming webhook" compatible Slack/Mattermost).
// Aucun SDK : un POST JSON signé par l'URL secrète suffit.
type ChatNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewChatNotifier() *ChatNotifier {
	return &ChatNotifier{
		webhookURL: os.Getenv("CHAT_WEBHOOK_URL"),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *ChatNotifier) SendOrderAlert(ctx context.Context, order *models.Order) error {
	if n.webhookURL == "" {
		return nil
	}

	payload := map[string]any{
		"text": fmt.Sprintf("💶 Nouvelle commande payée : %s — %.2f€ (%d articles) pour %s",
			order.OrderNumber, order.TotalAmount, len(order.Items), order.CustomerEmail),
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
		"items_count":  len(order.Items),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook chat a renvoyé %d", resp.StatusCode)
	}
	return nil
}
