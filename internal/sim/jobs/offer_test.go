package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hivecore.ai/internal/sim/game/gametest"
)

func TestOfferTakeNeverUnderflows(t *testing.T) {
	o := NewOffer(Harvest(&gametest.Source{ObjID: "s"}), 2)
	assert.True(t, o.Take())
	assert.True(t, o.Take())
	assert.False(t, o.Take())
	assert.Equal(t, uint32(0), o.Places())
	assert.False(t, o.Available())
}

func TestOfferExhaust(t *testing.T) {
	o := NewOffer(Maintain(&gametest.Structure{ObjID: "spawn"}), 3)
	o.Take()
	o.Exhaust()
	assert.Equal(t, uint32(0), o.Places())
	assert.False(t, o.Take())
}

func TestPoolHelpers(t *testing.T) {
	src := &gametest.Source{ObjID: "s"}
	site := &gametest.Site{ObjID: "b"}
	p := Pool{NewOffer(Harvest(src), 1), NewOffer(Build(site), 0), NewOffer(Harvest(&gametest.Source{ObjID: "s2"}), 4)}

	assert.Equal(t, 2, p.Available())
	o, ok := p.Find(Build(site))
	assert.True(t, ok)
	assert.Equal(t, uint32(0), o.Places())
	assert.Equal(t, map[Kind]int{KindHarvest: 2, KindBuild: 1}, p.CountByKind())
}
