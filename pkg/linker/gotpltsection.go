package linker

import (
	"debug/elf"

	"github.com/go-xld/xld/pkg/utils"
)

// GotPltSection is .got.plt: one 8-byte slot per PLT stub, indexed the
// same way as the stub table in PltSection (slot i backs stub i). Since
// this linker does not emit the lazy PLT0 resolver stub, no slot points
// back into a resolver: an imported symbol's slot is bound eagerly via an
// R_X86_64_JUMP_SLOT dynamic relocation, and any other symbol's slot
// holds its address directly.
type GotPltSection struct {
	Chunk
	Syms []*Symbol
}

func NewGotPltSection() *GotPltSection {
	g := &GotPltSection{Chunk: NewChunk()}
	g.Name = ".got.plt"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	return g
}

func (g *GotPltSection) AddSymbol(sym *Symbol) {
	g.Syms = append(g.Syms, sym)
}

func (g *GotPltSection) UpdateShdr(ctx *Context) {
	g.Shdr.Size = uint64(len(g.Syms)) * GotEntrySize
}

func (g *GotPltSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[g.Shdr.Offset:]
	for i := range buf[:g.Shdr.Size] {
		buf[i] = 0
	}
	for i, sym := range g.Syms {
		if !sym.IsImported {
			utils.Write[uint64](buf[i*GotEntrySize:], sym.GetAddr(ctx))
		}
	}
}

// CollectRelas returns one R_X86_64_JUMP_SLOT relocation per imported
// symbol's slot; symbols resolved within this link need none, their slot
// is already the real address.
func (g *GotPltSection) CollectRelas(ctx *Context) []Rela {
	var relas []Rela
	for i, sym := range g.Syms {
		if !sym.IsImported {
			continue
		}
		relas = append(relas, Rela{
			Offset: g.Shdr.Addr + uint64(i)*GotEntrySize,
			Type:   uint32(elf.R_X86_64_JMP_SLOT),
			Sym:    uint32(sym.GetDynsymIdx(ctx)),
			Addend: 0,
		})
	}
	return relas
}
