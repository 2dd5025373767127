package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"lunetier_back_end/internal/models"
)

// Mailer envoie la facture au client
type Mailer interface {
	SendInvoice(ctx context.Context, order *models.Order) error
}

// ChatClient pousse une alerte commande vers le canal d'équipe
type ChatClient interface {
	SendOrderAlert(ctx context.Context, order *models.Order) error
}

const callTimeout = 10 * time.Second

// Dispatcher : fan-out parallèle e-mail + chat sur confirmation de paiement.
// Best-effort des deux côtés : l'échec de l'un ne bloque pas l'autre et rien
// ne remonte jamais vers la réponse HTTP. Une seule tentative par invocation,
// un webhook rejoué peut renvoyer l'e-mail (duplication tolérée).
type Dispatcher struct {
	mailer Mailer
	chat   ChatClient
}

func NewDispatcher(mailer Mailer, chat ChatClient) *Dispatcher {
	return &Dispatcher{mailer: mailer, chat: chat}
}

func (d *Dispatcher) PaymentConfirmed(ctx context.Context, order *models.Order) {
	var wg sync.WaitGroup

	if d.mailer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), callTimeout)
			defer cancel()
			if err := d.mailer.SendInvoice(mailCtx, order); err != nil {
				log.Printf("❌ Erreur envoi facture pour %s: %v", order.OrderNumber, err)
			} else {
				log.Printf("📧 Facture envoyée à %s pour %s", order.CustomerEmail, order.OrderNumber)
			}
		}()
	}

	if d.chat != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chatCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), callTimeout)
			defer cancel()
			if err := d.chat.SendOrderAlert(chatCtx, order); err != nil {
				log.Printf("⚠️ Notification chat échouée pour %s: %v", order.OrderNumber, err)
			}
		}()
	}

	wg.Wait()
}
