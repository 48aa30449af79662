package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogSizes(t *testing.T) {
	assert.Len(t, Locations, 8)
	assert.Len(t, Products, 5)
	assert.Len(t, Markets, 7)
	for _, l := range Locations {
		assert.NoError(t, l.Validate("location"), l.Name)
	}
}

func TestUnitWeights(t *testing.T) {
	assert.Equal(t, 25.0, UnitCrates.KG())
	assert.Equal(t, 50.0, UnitBags.KG())
	assert.Equal(t, 1.0, Unit("kg").KG())
}

func TestLookups(t *testing.T) {
	p, ok := ProductByName("tomato")
	assert.True(t, ok)
	assert.Equal(t, "Tomatoes", p.Name)
	assert.True(t, p.Perishable())

	p, ok = ProductByName("Maize")
	assert.True(t, ok)
	assert.False(t, p.Perishable())

	_, ok = ProductByName("")
	assert.False(t, ok)

	l, ok := LocationByName(" mutare ")
	assert.True(t, ok)
	assert.Equal(t, "Mutare", l.Name)

	m, ok := MarketByName("mbare")
	assert.True(t, ok)
	assert.Equal(t, "Mbare Musika Market", m.Name)
}
