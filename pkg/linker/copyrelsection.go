package linker

import (
	"debug/elf"

	"github.com/go-xld/xld/pkg/utils"
)

// CopyrelSection backs NEEDS_COPYREL symbols (§4.1): data objects that
// live in a DSO but are referenced by an absolute relocation this link
// cannot turn into a GOT/PLT indirection. Each gets a slot sized to its
// own symbol size; the dynamic linker copies the DSO's initial value in
// at load time via an R_X86_64_COPY relocation, so the section itself
// carries no file content (SHT_NOBITS, like .bss).
type CopyrelSection struct {
	Chunk
	Syms []*Symbol
}

func NewCopyrelSection() *CopyrelSection {
	c := &CopyrelSection{Chunk: NewChunk()}
	c.Name = ".copyrel"
	c.Shdr.Type = uint32(elf.SHT_NOBITS)
	c.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	c.Shdr.AddrAlign = 8
	return c
}

func (c *CopyrelSection) AddSymbol(ctx *Context, sym *Symbol) {
	if sym.GetCopyrelIdx(ctx) != -1 {
		return
	}

	size := sym.ElfSym().Size
	if size == 0 {
		size = 1
	}
	align := uint64(8)
	for align > size {
		align /= 2
	}
	if align == 0 {
		align = 1
	}

	c.Shdr.Size = utils.AlignTo(c.Shdr.Size, align)
	sym.SetCopyrelIdx(ctx, int32(c.Shdr.Size))
	c.Shdr.Size += size
	c.Syms = append(c.Syms, sym)
}

// CollectRelas returns one R_X86_64_COPY relocation per symbol, telling
// the dynamic linker which DSO symbol's initial value to copy in.
func (c *CopyrelSection) CollectRelas(ctx *Context) []Rela {
	var relas []Rela
	for _, sym := range c.Syms {
		relas = append(relas, Rela{
			Offset: c.Shdr.Addr + uint64(sym.GetCopyrelIdx(ctx)),
			Type:   uint32(elf.R_X86_64_COPY),
			Sym:    uint32(sym.GetDynsymIdx(ctx)),
			Addend: 0,
		})
	}
	return relas
}
