package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDynstrSectionInterns(t *testing.T) {
	d := NewDynstrSection()

	off1 := d.AddString("malloc")
	off2 := d.AddString("free")
	off3 := d.AddString("malloc")

	assert.Equal(t, off1, off3)
	assert.NotEqual(t, off1, off2)

	ctx := &Context{}
	d.UpdateShdr(ctx)
	assert.Equal(t, uint64(len(d.buf)), d.Shdr.Size)
}

func TestDynsymSectionAddSymbolIsIdempotent(t *testing.T) {
	ctx := NewContext()
	ctx.Dynstr = NewDynstrSection()
	d := NewDynsymSection()

	aux := NewSymbolAux()
	sym := NewSymbol("puts")
	sym.AuxIdx = 0
	ctx.SymbolsAux = []SymbolAux{aux}

	idx1 := d.AddSymbol(ctx, sym)
	idx2 := d.AddSymbol(ctx, sym)

	assert.Equal(t, idx1, idx2)
	assert.Len(t, d.Syms, 2) // nil placeholder + the one symbol
}
