package linker

import (
	"debug/elf"

	"github.com/go-xld/xld/pkg/utils"
)

// GotSection is the x86-64 .got: besides plain GOT slots it also backs
// TLSGD (two slots: module id + offset), TLSLD (one shared pair of slots:
// module id + 0), and GOTTPOFF (one slot holding a TP-relative offset).
// Only slots of imported symbols get a dynamic relocation instead of a
// plain value, collected by CollectRelas for .rela.dyn; all other slots,
// including the TLSLD pair and the TLS slots of locally defined symbols,
// hold link-time constants, also when building a shared object.
type GotSection struct {
	Chunk
	GotSyms   []*Symbol
	GotTpSyms []*Symbol
	TlsgdSyms []*Symbol

	// TlsldIdx is the GOT index of the shared TLSLD module-id/offset pair,
	// or -1 if no TLSLD relocation was seen.
	TlsldIdx int32
}

func NewGotSection() *GotSection {
	g := &GotSection{Chunk: NewChunk(), TlsldIdx: -1}
	g.Name = ".got"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	return g
}

func (g *GotSection) AddGotSymbol(ctx *Context, sym *Symbol) {
	if sym.GetGotIdx(ctx) != -1 {
		return
	}
	sym.SetGotIdx(ctx, int32(g.Shdr.Size/GotEntrySize))
	g.Shdr.Size += GotEntrySize
	g.GotSyms = append(g.GotSyms, sym)
}

func (g *GotSection) AddGotTpSymbol(ctx *Context, sym *Symbol) {
	if sym.GetGotTpIdx(ctx) != -1 {
		return
	}
	sym.SetGotTpIdx(ctx, int32(g.Shdr.Size/GotEntrySize))
	g.Shdr.Size += GotEntrySize
	g.GotTpSyms = append(g.GotTpSyms, sym)
}

func (g *GotSection) AddTlsgdSymbol(ctx *Context, sym *Symbol) {
	if sym.GetTlsgdIdx(ctx) != -1 {
		return
	}
	sym.SetTlsgdIdx(ctx, int32(g.Shdr.Size/GotEntrySize))
	g.Shdr.Size += 2 * GotEntrySize
	g.TlsgdSyms = append(g.TlsgdSyms, sym)
}

func (g *GotSection) AddTlsld(ctx *Context) {
	if g.TlsldIdx != -1 {
		return
	}
	g.TlsldIdx = int32(g.Shdr.Size / GotEntrySize)
	g.Shdr.Size += 2 * GotEntrySize
}

func (g *GotSection) GetTlsldAddr(ctx *Context) uint64 {
	return g.Shdr.Addr + uint64(g.TlsldIdx)*GotEntrySize
}

func (g *GotSection) UpdateShdr(ctx *Context) {
	if g.Shdr.Size == 0 {
		g.Shdr.Size = GotEntrySize
	}
}

func (g *GotSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[g.Shdr.Offset:]
	for i := uint64(0); i < g.Shdr.Size; i++ {
		buf[i] = 0
	}

	for _, sym := range g.GotSyms {
		if sym.IsImported {
			continue
		}
		idx := sym.GetGotIdx(ctx)
		utils.Write[uint64](buf[int64(idx)*GotEntrySize:], sym.GetAddr(ctx))
	}

	for _, sym := range g.GotTpSyms {
		if sym.IsImported {
			continue
		}
		idx := sym.GetGotTpIdx(ctx)
		utils.Write[uint64](buf[int64(idx)*GotEntrySize:], sym.GetAddr(ctx)-ctx.TlsEnd)
	}

	for _, sym := range g.TlsgdSyms {
		if sym.IsImported {
			continue
		}
		idx := sym.GetTlsgdIdx(ctx)
		// Static-linked TLSGD: module id 1 (the executable's own module),
		// offset relative to the TLS block.
		utils.Write[uint64](buf[int64(idx)*GotEntrySize:], 1)
		utils.Write[uint64](buf[(int64(idx)+1)*GotEntrySize:], sym.GetAddr(ctx)-ctx.TlsBegin)
	}

	if g.TlsldIdx != -1 {
		utils.Write[uint64](buf[int64(g.TlsldIdx)*GotEntrySize:], 1)
		utils.Write[uint64](buf[(int64(g.TlsldIdx)+1)*GotEntrySize:], 0)
	}
}

// CollectRelas returns the dynamic relocations that must be applied to
// this section's slots at load time: R_X86_64_GLOB_DAT for an imported
// plain GOT entry, R_X86_64_TPOFF64 for an imported GOTTPOFF entry, and
// R_X86_64_DTPMOD64/DTPOFF64 for an imported TLSGD pair (§4.1/§4.2).
func (g *GotSection) CollectRelas(ctx *Context) []Rela {
	var relas []Rela

	for _, sym := range g.GotSyms {
		if !sym.IsImported {
			continue
		}
		relas = append(relas, Rela{
			Offset: g.Shdr.Addr + uint64(sym.GetGotIdx(ctx))*GotEntrySize,
			Type:   uint32(elf.R_X86_64_GLOB_DAT),
			Sym:    uint32(sym.GetDynsymIdx(ctx)),
			Addend: 0,
		})
	}

	for _, sym := range g.GotTpSyms {
		if !sym.IsImported {
			continue
		}
		relas = append(relas, Rela{
			Offset: g.Shdr.Addr + uint64(sym.GetGotTpIdx(ctx))*GotEntrySize,
			Type:   uint32(elf.R_X86_64_TPOFF64),
			Sym:    uint32(sym.GetDynsymIdx(ctx)),
			Addend: 0,
		})
	}

	for _, sym := range g.TlsgdSyms {
		if !sym.IsImported {
			continue
		}
		idx := sym.GetTlsgdIdx(ctx)
		relas = append(relas,
			Rela{
				Offset: g.Shdr.Addr + uint64(idx)*GotEntrySize,
				Type:   uint32(elf.R_X86_64_DTPMOD64),
				Sym:    uint32(sym.GetDynsymIdx(ctx)),
				Addend: 0,
			},
			Rela{
				Offset: g.Shdr.Addr + uint64(idx+1)*GotEntrySize,
				Type:   uint32(elf.R_X86_64_DTPOFF64),
				Sym:    uint32(sym.GetDynsymIdx(ctx)),
				Addend: 0,
			},
		)
	}

	return relas
}
