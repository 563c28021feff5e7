package linker

import (
	"debug/elf"

	"github.com/go-xld/xld/pkg/utils"
)

// RelaDynSection backs .rela.dyn: every dynamic relocation this link
// needs to hand the runtime loader, gathered from the synthetic sections
// that own load-time-resolved slots (GOT, GOT.PLT, copy relocations) plus
// every R_DYN- or R_ABS_DYN-classified relocation against an allocated input section
// (§4.1's NEEDS_DYNSYM bookkeeping, §4.2's apply_reloc_alloc dynrel path).
type RelaDynSection struct {
	Chunk
	Relas []Rela
}

func NewRelaDynSection() *RelaDynSection {
	r := &RelaDynSection{Chunk: NewChunk()}
	r.Name = ".rela.dyn"
	r.Shdr.Type = uint32(elf.SHT_RELA)
	r.Shdr.Flags = uint64(elf.SHF_ALLOC)
	r.Shdr.EntSize = 24
	r.Shdr.AddrAlign = 8
	return r
}

func (r *RelaDynSection) Add(rela Rela) {
	r.Relas = append(r.Relas, rela)
}

// Collect gathers every synthetic section's dynamic relocations plus
// every live input section's DynRelas. Only ever called from CopyBuf,
// once addresses are final and ApplyRelocAlloc has run; re-running it is
// safe since it starts by truncating r.Relas back to empty.
func (r *RelaDynSection) Collect(ctx *Context) {
	r.Relas = r.Relas[:0]
	r.Relas = append(r.Relas, ctx.Got.CollectRelas(ctx)...)
	r.Relas = append(r.Relas, ctx.GotPlt.CollectRelas(ctx)...)
	r.Relas = append(r.Relas, ctx.Copyrel.CollectRelas(ctx)...)

	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil || !isec.IsAlive {
				continue
			}
			r.Relas = append(r.Relas, isec.DynRelas...)
		}
	}
}

// numRelas counts the entries Collect will gather without requiring any of
// the addresses or isec.DynRelas it reads, both of which are still
// unset/empty at layout time: the synthetic sections' slot counts depend
// only on which symbols were flagged during ScanRels, and NumDynrel is
// incremented by ScanRelocations in lockstep with every R_DYN/R_ABS_DYN
// classification, well before ApplyRelocAlloc ever runs.
func (r *RelaDynSection) numRelas(ctx *Context) int {
	n := len(ctx.Got.CollectRelas(ctx)) + len(ctx.GotPlt.CollectRelas(ctx)) + len(ctx.Copyrel.CollectRelas(ctx))
	for _, file := range ctx.Objs {
		n += int(file.NumDynrel)
	}
	return n
}

func (r *RelaDynSection) UpdateShdr(ctx *Context) {
	r.Shdr.Size = uint64(r.numRelas(ctx)) * r.Shdr.EntSize
}

// CopyBuf re-collects before writing: by the time it runs, every other
// chunk's CopyBuf has already run (xld.go orders RelaDyn last), so
// Shdr.Addr on the synthetic sections is final and isec.DynRelas has been
// fully populated by ApplyRelocAlloc.
func (r *RelaDynSection) CopyBuf(ctx *Context) {
	r.Collect(ctx)
	buf := ctx.Buf[r.Shdr.Offset:]
	for i, rela := range r.Relas {
		info := uint64(rela.Type) | uint64(rela.Sym)<<32
		utils.Write[uint64](buf[i*24:], rela.Offset)
		utils.Write[uint64](buf[i*24+8:], info)
		utils.Write[int64](buf[i*24+16:], rela.Addend)
	}
}
