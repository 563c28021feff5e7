package linker

import (
	"debug/elf"
)

// CreateDsoFile parses a shared object: unlike a relocatable object, a DSO
// contributes no input sections to the link, only symbol definitions other
// files' relocations may resolve against.
func CreateDsoFile(ctx *Context, file *File) *ObjectFile {
	obj := NewObjectFile(file, false)
	obj.IsDso = true
	obj.IsAlive = true
	obj.Priority = uint32(ctx.FilePriority)
	ctx.FilePriority++

	obj.FirstGlobal = 1
	obj.LocalSyms = []Symbol{*NewSymbol("")}
	obj.LocalSyms[0].File = obj

	obj.SymtabSec = obj.FindSection(uint32(elf.SHT_DYNSYM))
	if obj.SymtabSec == nil {
		obj.Symbols = []*Symbol{&obj.LocalSyms[0]}
		return obj
	}

	obj.InputFile.FillUpElfSyms(obj.SymtabSec)
	obj.InputFile.SymbolStrtab = obj.InputFile.GetBytesFromIdx(int64(obj.SymtabSec.Link))

	obj.Symbols = make([]*Symbol, len(obj.ElfSyms))
	obj.Symbols[0] = &obj.LocalSyms[0]

	for i := int64(1); i < int64(len(obj.ElfSyms)); i++ {
		esym := &obj.ElfSyms[i]
		name := getName(obj.SymbolStrtab, esym.Name)
		obj.Symbols[i] = GetSymbolByName(ctx, name)
	}

	return obj
}

// ResolveDsoSymbols binds every still-unresolved global symbol to a
// matching export from one of the loaded shared objects. A DSO never
// overrides a definition an object file already supplied: it fills in
// only what the objects left undefined.
func ResolveDsoSymbols(ctx *Context) {
	for _, dso := range ctx.Dsos {
		for i := int64(1); i < int64(len(dso.ElfSyms)); i++ {
			esym := &dso.ElfSyms[i]
			if esym.IsUndef() {
				continue
			}

			sym := dso.Symbols[i]
			if sym.File != nil {
				continue
			}

			sym.File = dso
			sym.Value = esym.Val
			sym.SymIdx = int32(i)
			sym.VerIdx = ctx.DefaultVersion
			sym.IsWeak = esym.IsWeak()
			sym.IsImported = true
		}
	}
}
