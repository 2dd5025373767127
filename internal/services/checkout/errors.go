package checkout

import (
	"errors"
	"fmt"
)

// Les erreurs de validation sont exploitables par le client : elles remontent
// telles quelles. Tout le reste est enveloppé dans CheckoutFailedError.
var ErrEmptyCart = errors.New("panier vide")

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("produit introuvable: %s", e.ProductID)
}

type InsufficientStockError struct {
	ProductName string
	Color       string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	if e.Color != "" {
		return fmt.Sprintf("stock insuffisant pour %s (%s): %d disponible, %d demandé",
			e.ProductName, e.Color, e.Available, e.Requested)
	}
	return fmt.Sprintf("stock insuffisant pour %s: %d disponible, %d demandé",
		e.ProductName, e.Available, e.Requested)
}

// CheckoutFailedError : échec système (prestataire injoignable, écriture
// base) présenté au client comme une erreur générique "réessayez".
type CheckoutFailedError struct {
	Err error
}

func (e *CheckoutFailedError) Error() string {
	return "échec de la création du paiement, veuillez réessayer"
}

func (e *CheckoutFailedError) Unwrap() error {
	return e.Err
}

// IsValidationError distingue les erreurs 400 (utilisateur) des échecs 500
func IsValidationError(err error) bool {
	var nf *ProductNotFoundError
	var is *InsufficientStockError
	return errors.Is(err, ErrEmptyCart) || errors.As(err, &nf) || errors.As(err, &is)
}
