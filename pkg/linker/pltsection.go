package linker

import "debug/elf"

// PltSection is .plt: one fixed-size indirect-jump stub per symbol that
// needs NEEDS_PLT (§4.1). Stub i jumps through slot i of GotPltSection,
// so PltIdx doubles as the index into both tables.
type PltSection struct {
	Chunk
	Syms []*Symbol
}

func NewPltSection() *PltSection {
	p := &PltSection{Chunk: NewChunk()}
	p.Name = ".plt"
	p.Shdr.Type = uint32(elf.SHT_PROGBITS)
	p.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	p.Shdr.AddrAlign = 16
	return p
}

func (p *PltSection) AddSymbol(ctx *Context, sym *Symbol) {
	if sym.GetPltIdx(ctx) != -1 {
		return
	}
	sym.SetPltIdx(ctx, int32(len(p.Syms)))
	p.Syms = append(p.Syms, sym)
	ctx.GotPlt.AddSymbol(sym)
}

func (p *PltSection) UpdateShdr(ctx *Context) {
	p.Shdr.Size = uint64(len(p.Syms)) * PltEntrySize
}

// CopyBuf writes, for every stub, a bare indirect jump through its
// GOT.PLT slot padded out to PltEntrySize with single-byte nops:
//
//	ff 25 xx xx xx xx   jmp *disp32(%rip)   ; disp32 -> got.plt[i]
//	90 90 ... 90        nop padding
func (p *PltSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[p.Shdr.Offset:]
	for i, sym := range p.Syms {
		stub := buf[i*PltEntrySize : (i+1)*PltEntrySize]
		for j := range stub {
			stub[j] = 0x90
		}

		pltAddr := p.Shdr.Addr + uint64(i)*PltEntrySize
		gotPltAddr := ctx.GotPlt.Shdr.Addr + uint64(i)*GotEntrySize
		disp := int32(gotPltAddr - (pltAddr + 6))

		stub[0] = 0xff
		stub[1] = 0x25
		stub[2] = byte(disp)
		stub[3] = byte(disp >> 8)
		stub[4] = byte(disp >> 16)
		stub[5] = byte(disp >> 24)

		_ = sym
	}
}
