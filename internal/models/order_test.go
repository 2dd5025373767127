package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryCanTransitionForward(t *testing.T) {
	assert.True(t, DeliveryOrderPlaced.CanTransitionTo(DeliveryOrderConfirmed))
	assert.True(t, DeliveryOrderConfirmed.CanTransitionTo(DeliveryProcessing))
	assert.True(t, DeliveryProcessing.CanTransitionTo(DeliveryDispatched))
	assert.True(t, DeliveryDispatched.CanTransitionTo(DeliveryInTransit))
	assert.True(t, DeliveryInTransit.CanTransitionTo(DeliveryOutForDelivery))
	assert.True(t, DeliveryOutForDelivery.CanTransitionTo(DeliveryDelivered))

	// Sauter des étapes reste un mouvement vers l'avant
	assert.True(t, DeliveryOrderPlaced.CanTransitionTo(DeliveryDispatched))
}

func TestDeliveryCannotGoBackward(t *testing.T) {
	assert.False(t, DeliveryDispatched.CanTransitionTo(DeliveryProcessing))
	assert.False(t, DeliveryInTransit.CanTransitionTo(DeliveryOrderPlaced))
	assert.False(t, DeliveryOrderConfirmed.CanTransitionTo(DeliveryOrderConfirmed))
}

func TestDeliveryTerminalStatesAreFrozen(t *testing.T) {
	for _, terminal := range []DeliveryStatus{DeliveryDelivered, DeliveryCancelled, DeliveryReturned} {
		assert.True(t, terminal.IsTerminal())
		assert.False(t, terminal.CanTransitionTo(DeliveryOrderPlaced), "%s ne doit plus bouger", terminal)
		assert.False(t, terminal.CanTransitionTo(DeliveryDelayed), "%s ne doit plus bouger", terminal)
	}
}

func TestDeliverySideBranches(t *testing.T) {
	// Annulation et retour possibles depuis tout état non terminal
	assert.True(t, DeliveryOrderPlaced.CanTransitionTo(DeliveryCancelled))
	assert.True(t, DeliveryInTransit.CanTransitionTo(DeliveryReturned))
	assert.True(t, DeliveryProcessing.CanTransitionTo(DeliveryDelayed))

	// Une commande retardée peut reprendre n'importe où dans la chaîne
	assert.True(t, DeliveryDelayed.CanTransitionTo(DeliveryInTransit))
	assert.True(t, DeliveryDelayed.CanTransitionTo(DeliveryDelivered))
	assert.True(t, DeliveryDelayed.CanTransitionTo(DeliveryCancelled))
}

func TestProductAvailableStock(t *testing.T) {
	flat := Product{Type: TypeContacts, Stock: 12}
	assert.Equal(t, 12, flat.AvailableStock())

	frames := Product{
		Type: TypeGlasses,
		// le compteur plat est ignoré dès qu'il y a des coloris
		Stock: 99,
		Variants: []FrameColorVariant{
			{Color: "noir", Stock: 3},
			{Color: "écaille", Stock: 2},
		},
	}
	assert.Equal(t, 5, frames.AvailableStock())
}

func TestNormalizeColor(t *testing.T) {
	assert.Equal(t, "noir mat", NormalizeColor("  Noir Mat "))
	assert.Equal(t, "écaille", NormalizeColor("ÉCAILLE"))
	assert.Equal(t, "", NormalizeColor("   "))
}

func TestFindVariantMatchesNormalized(t *testing.T) {
	p := Product{
		Type: TypeSunglasses,
		Variants: []FrameColorVariant{
			{Color: "noir", Stock: 1},
			{Color: "doré", Stock: 4},
		},
	}

	v := p.FindVariant(" Doré ")
	if assert.NotNil(t, v) {
		assert.Equal(t, 4, v.Stock)
	}
	assert.Nil(t, p.FindVariant("rouge"))
}
