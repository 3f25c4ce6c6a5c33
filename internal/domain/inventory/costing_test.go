package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/kardex-engine/internal/domain"
	"github.com/tu-usuario/kardex-engine/internal/domain/inventory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeInbound_PromedioPonderado(t *testing.T) {
	// (10 * 5.00 + 10 * 7.00) / 20 = 6.00
	cost, err := inventory.ComputeInbound(dec("10"), dec("5.00"), dec("10"), dec("7.00"))
	require.NoError(t, err)
	assert.True(t, dec("6.00").Equal(cost), "esperaba 6.00, obtuvo %s", cost)
}

func TestComputeInbound_RedondeoHalfUp(t *testing.T) {
	// (1 * 1.00 + 1 * 1.01) / 2 = 1.005 -> 1.01 (half-up)
	cost, err := inventory.ComputeInbound(dec("1"), dec("1.00"), dec("1"), dec("1.01"))
	require.NoError(t, err)
	assert.True(t, dec("1.01").Equal(cost), "esperaba 1.01, obtuvo %s", cost)

	// (1 * 0.01 + 2 * 0.02) / 3 = 0.01666... -> 0.02
	cost, err = inventory.ComputeInbound(dec("1"), dec("0.01"), dec("2"), dec("0.02"))
	require.NoError(t, err)
	assert.True(t, dec("0.02").Equal(cost), "esperaba 0.02, obtuvo %s", cost)
}

func TestComputeInbound_StockPrevioNegativo(t *testing.T) {
	// Stock -5: la entrada de 3 deja cantidad <= 0, el costo es el de la entrada.
	cost, err := inventory.ComputeInbound(dec("-5"), dec("4.00"), dec("3"), dec("10.00"))
	require.NoError(t, err)
	assert.True(t, dec("10.00").Equal(cost), "caso degenerado debe tomar el costo entrante")
}

func TestComputeInbound_StockPrevioCero(t *testing.T) {
	cost, err := inventory.ComputeInbound(decimal.Zero, decimal.Zero, dec("8"), dec("3.50"))
	require.NoError(t, err)
	assert.True(t, dec("3.50").Equal(cost))
}

func TestComputeInbound_CantidadInvalida(t *testing.T) {
	_, err := inventory.ComputeInbound(dec("10"), dec("5.00"), decimal.Zero, dec("7.00"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = inventory.ComputeInbound(dec("10"), dec("5.00"), dec("-1"), dec("7.00"))
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestValidateOutbound_StockInsuficiente(t *testing.T) {
	err := inventory.ValidateOutbound(dec("3"), dec("5"), false)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestValidateOutbound_BodegaPermiteNegativo(t *testing.T) {
	err := inventory.ValidateOutbound(dec("3"), dec("5"), true)
	assert.NoError(t, err, "con allowNegative la salida puede dejar stock negativo")
}

func TestValidateOutbound_ExactamenteTodoElStock(t *testing.T) {
	err := inventory.ValidateOutbound(dec("5"), dec("5"), false)
	assert.NoError(t, err)
}

func TestValidateOutbound_CantidadInvalida(t *testing.T) {
	assert.ErrorIs(t, inventory.ValidateOutbound(dec("10"), decimal.Zero, false), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, inventory.ValidateOutbound(dec("10"), dec("-2"), true), domain.ErrInvalidQuantity)
}
