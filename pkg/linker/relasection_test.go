package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelaDynSectionUpdateShdrSizesFromNumDynrel(t *testing.T) {
	ctx := NewContext()
	ctx.Got = NewGotSection()
	ctx.GotPlt = NewGotPltSection()
	ctx.Copyrel = NewCopyrelSection()
	r := NewRelaDynSection()

	r.UpdateShdr(ctx)
	assert.Equal(t, uint64(0), r.Shdr.Size)

	// NumDynrel is set by ScanRelocations well before any section has a
	// real address or isec.DynRelas populated: UpdateShdr must size off of
	// it alone.
	obj := &ObjectFile{}
	obj.IsAlive = true
	obj.NumDynrel = 1
	isec := &InputSection{File: obj, IsAlive: true}
	obj.Sections = []*InputSection{isec}
	ctx.Objs = []*ObjectFile{obj}

	r.UpdateShdr(ctx)
	assert.Equal(t, uint64(24), r.Shdr.Size)
	assert.Empty(t, r.Relas, "UpdateShdr must not collect records, only count them")

	// A second sizing pass is stable.
	r.UpdateShdr(ctx)
	assert.Equal(t, uint64(24), r.Shdr.Size)
}

func TestRelaDynSectionCopyBufCollectsFromDynRelas(t *testing.T) {
	ctx := NewContext()
	ctx.Got = NewGotSection()
	ctx.GotPlt = NewGotPltSection()
	ctx.Copyrel = NewCopyrelSection()
	r := NewRelaDynSection()

	obj := &ObjectFile{}
	obj.IsAlive = true
	isec := &InputSection{File: obj, IsAlive: true}
	isec.DynRelas = []Rela{{Offset: 0x1000, Type: 8, Sym: 3, Addend: 0}}
	obj.Sections = []*InputSection{isec}
	ctx.Objs = []*ObjectFile{obj}

	r.Shdr.Offset = 0
	ctx.Buf = make([]byte, 24)

	// CopyBuf is where the real records, keyed off final addresses and the
	// apply pass's isec.DynRelas, actually get gathered.
	r.CopyBuf(ctx)
	assert.Len(t, r.Relas, 1)

	// A second CopyBuf rebuilds from scratch rather than accumulating.
	r.CopyBuf(ctx)
	assert.Len(t, r.Relas, 1)
}
