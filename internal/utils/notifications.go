package utils

import (
	"context"
	"fmt"
	"log"

	"lunetier_back_end/internal/models"
)

// SendDeliveryStatusEmail prévient le client d'un changement de statut de
// livraison. Best-effort : l'échec est loggé par l'appelant, pas bloquant.
func SendDeliveryStatusEmail(ctx context.Context, order *models.Order, newStatus models.DeliveryStatus) error {
	subject := getStatusEmailSubject(newStatus)
	html := generateStatusEmailHTML(order, newStatus)

	if err := SendEmail(ctx, order.CustomerEmail, subject, html, nil); err != nil {
		log.Printf("❌ Erreur envoi email statut: %v", err)
		return err
	}

	log.Printf("📧 Email de statut envoyé: %s → %s", newStatus, order.CustomerEmail)
	return nil
}

func getStatusEmailSubject(status models.DeliveryStatus) string {
	switch status {
	case models.DeliveryOrderConfirmed:
		return "✅ Commande confirmée - Lunetier"
	case models.DeliveryDispatched, models.DeliveryInTransit:
		return "📦 Votre commande est en route - Lunetier"
	case models.DeliveryOutForDelivery:
		return "🚚 Votre commande arrive aujourd'hui - Lunetier"
	case models.DeliveryDelivered:
		return "🎉 Votre commande a été livrée - Lunetier"
	case models.DeliveryCancelled:
		return "❌ Commande annulée - Lunetier"
	case models.DeliveryReturned:
		return "↩️ Retour enregistré - Lunetier"
	case models.DeliveryDelayed:
		return "⏳ Votre commande est retardée - Lunetier"
	default:
		return "📋 Mise à jour de votre commande - Lunetier"
	}
}

func getStatusMessage(status models.DeliveryStatus) string {
	switch status {
	case models.DeliveryOrderConfirmed:
		return "Votre paiement a été confirmé avec succès. Nous préparons votre commande."
	case models.DeliveryProcessing:
		return "Vos montures sont en cours de préparation dans notre atelier."
	case models.DeliveryDispatched, models.DeliveryInTransit:
		return "Bonne nouvelle ! Votre commande a été expédiée et est en route vers vous."
	case models.DeliveryOutForDelivery:
		return "Votre commande est en cours de livraison, elle arrive aujourd'hui."
	case models.DeliveryDelivered:
		return "Votre commande a été livrée avec succès. Nous espérons que vous en êtes satisfait !"
	case models.DeliveryCancelled:
		return "Votre commande a été annulée. Si vous avez des questions, n'hésitez pas à nous contacter."
	case models.DeliveryReturned:
		return "Nous avons bien enregistré le retour de votre commande."
	case models.DeliveryDelayed:
		return "Votre commande prend un peu plus de temps que prévu. Nous vous tenons informé."
	default:
		return "Le statut de votre commande a été mis à jour."
	}
}

func generateStatusEmailHTML(order *models.Order, status models.DeliveryStatus) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Mise à jour de commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Mise à jour de votre commande</h2>
		<p>%s</p>

		<div style="background-color: #f8f9fa; border-radius: 8px; padding: 20px; margin: 20px 0;">
			<p style="margin: 0 0 8px 0;"><strong>Numéro de commande:</strong> %s</p>
			<p style="margin: 0 0 8px 0;"><strong>Montant total:</strong> %.2f€</p>
			<p style="margin: 0;"><strong>Statut:</strong> %s</p>
		</div>

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Lunetier</strong>
		</p>
	</div>
</body>
</html>`, getStatusMessage(status), order.OrderNumber, order.TotalAmount, status)
}
