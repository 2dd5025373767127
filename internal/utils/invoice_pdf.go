package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/skip2/go-qrcode"

	"lunetier_back_end/internal/models"
)

// GenerateTrackingQR génère un QR de suivi de commande en base64,
// prêt à mettre dans <img src="...">
func GenerateTrackingQR(orderNumber string) (string, error) {
	base := os.Getenv("FRONTEND_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	trackingURL := fmt.Sprintf("%s/orders/%s", base, orderNumber)

	png, err := qrcode.Encode(trackingURL, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GenerateInvoicePDF imprime la facture HTML en PDF via Chrome headless.
// La page est embarquée en data URL : pas de dépendance au front pour
// rendre une facture.
func GenerateInvoicePDF(ctx context.Context, order *models.Order) ([]byte, error) {
	qrBase64, err := GenerateTrackingQR(order.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("erreur génération QR: %v", err)
	}

	html := GenerateInvoiceHTML(order)
	html += fmt.Sprintf(`<div style="text-align:center; margin-top: 20px;">
		<img src="%s" alt="Suivi de commande" width="128" height="128"/>
		<p style="color:#999; font-size:12px;">Scannez pour suivre votre commande</p>
	</div>`, qrBase64)

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	cdpCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	cdpCtx, cancel = context.WithTimeout(cdpCtx, 30*time.Second)
	defer cancel()

	var pdfBuf []byte
	err = chromedp.Run(cdpCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return pdfBuf, nil
}
