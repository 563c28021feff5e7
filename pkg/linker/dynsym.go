package linker

import (
	"debug/elf"

	"github.com/go-xld/xld/pkg/utils"
)

// DynsymSection is .dynsym: the dynamic symbol table every PLT, GOT-based
// import, copy relocation, and TLSGD/DYN dynamic relocation points into
// by index. Paired 1:1 with DynstrSection for names. Index 0 is the
// mandatory null entry every ELF symbol table starts with.
type DynsymSection struct {
	Chunk
	Syms []*Symbol
}

func NewDynsymSection() *DynsymSection {
	d := &DynsymSection{Chunk: NewChunk()}
	d.Name = ".dynsym"
	d.Shdr.Type = uint32(elf.SHT_DYNSYM)
	d.Shdr.Flags = uint64(elf.SHF_ALLOC)
	d.Shdr.EntSize = 24
	d.Shdr.AddrAlign = 8
	d.Shdr.Info = 1
	d.Syms = []*Symbol{nil}
	return d
}

// AddSymbol assigns sym the next dynsym slot, unless it already has one.
func (d *DynsymSection) AddSymbol(ctx *Context, sym *Symbol) int32 {
	if idx := sym.GetDynsymIdx(ctx); idx != -1 {
		return idx
	}
	idx := int32(len(d.Syms))
	d.Syms = append(d.Syms, sym)
	sym.SetDynsymIdx(ctx, idx)
	// Reserve the name now so Dynstr's size is final by the time its own
	// UpdateShdr runs; CopyBuf below looks the offset up again from the
	// same map rather than caching it on Symbol.
	ctx.Dynstr.AddString(sym.Name)
	return idx
}

func (d *DynsymSection) UpdateShdr(ctx *Context) {
	d.Shdr.Size = uint64(len(d.Syms)) * 24
	d.Shdr.Link = uint32(ctx.Dynstr.GetShndx())
}

func (d *DynsymSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[d.Shdr.Offset:]
	for i, sym := range d.Syms {
		if sym == nil {
			continue
		}
		off := i * 24
		name := ctx.Dynstr.AddString(sym.Name)
		esym := Sym{
			Name:  name,
			Info:  sym.ElfSym().Info,
			Other: uint8(sym.Visibility),
		}
		if sym.IsImported {
			esym.Shndx = uint16(elf.SHN_UNDEF)
			esym.Val = 0
			esym.Size = 0
		} else {
			esym.Shndx = 1
			esym.Val = sym.GetAddr(ctx)
			esym.Size = sym.ElfSym().Size
		}
		utils.Write[Sym](buf[off:], esym)
	}
}

// DynstrSection is .dynstr: the string table backing DynsymSection's
// names. Offset 0 is always the empty string, matching every other
// ELF string table in this linker.
type DynstrSection struct {
	Chunk
	buf     []byte
	offsets map[string]uint32
}

func NewDynstrSection() *DynstrSection {
	d := &DynstrSection{
		Chunk:   NewChunk(),
		buf:     []byte{0},
		offsets: make(map[string]uint32),
	}
	d.Name = ".dynstr"
	d.Shdr.Type = uint32(elf.SHT_STRTAB)
	d.Shdr.Flags = uint64(elf.SHF_ALLOC)
	d.Shdr.AddrAlign = 1
	return d
}

func (d *DynstrSection) AddString(s string) uint32 {
	if off, ok := d.offsets[s]; ok {
		return off
	}
	off := uint32(len(d.buf))
	d.offsets[s] = off
	d.buf = append(d.buf, []byte(s)...)
	d.buf = append(d.buf, 0)
	return off
}

func (d *DynstrSection) UpdateShdr(ctx *Context) {
	d.Shdr.Size = uint64(len(d.buf))
}

func (d *DynstrSection) CopyBuf(ctx *Context) {
	copy(ctx.Buf[d.Shdr.Offset:], d.buf)
}
