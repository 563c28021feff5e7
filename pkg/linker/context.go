package linker

import (
	"github.com/go-xld/xld/pkg/utils"
	"github.com/sirupsen/logrus"
)

// ContextArg holds the configuration options parsed from the command
// line: the output path, emulation, library search paths, and the
// switches the core consumes.
type ContextArg struct {
	Output    string
	Emulation MachineType

	LibraryPaths []string

	// Pie selects position-independent executable output. Drives the
	// relocation classifier's PIE-vs-absolute decisions (§4.1).
	Pie bool

	// Relax permits TLS GD/LD-to-LE relaxation when legal (§4.1, §4.2).
	Relax bool

	// ICF turns on Identical Code Folding (--icf=all); off by default,
	// matching --icf=none.
	ICF bool

	// PrintICFSections requests the fold report on stderr.
	PrintICFSections bool

	// Shared builds a shared object instead of an executable.
	Shared bool
}

type Context struct {
	Arg ContextArg

	Log *logrus.Entry

	SymbolMap map[string]*Symbol

	SymbolsAux []SymbolAux

	Ehdr    *OutputEhdr
	Shdr    *OutputShdr
	Phdr    *OutputPhdr
	Got     *GotSection
	GotPlt  *GotPltSection
	Plt     *PltSection
	Copyrel *CopyrelSection
	RelaDyn *RelaDynSection
	Dynsym  *DynsymSection
	Dynstr  *DynstrSection

	Buf []byte

	FilePriority int64
	Visited      utils.MapSet[string]

	Objs []*ObjectFile
	Dsos []*ObjectFile

	InternalObj   *ObjectFile
	InternalEsyms []Sym

	Chunks []Chunker

	MergedSections []*MergedSection
	OutputSections []*OutputSection

	DefaultVersion uint16

	TlsBegin uint64
	TlsEnd   uint64

	Errors *ErrorReporter

	__InitArrayStart *Symbol
	__InitArrayEnd   *Symbol
	__FiniArrayStart *Symbol
	__FiniArrayEnd   *Symbol
}

func NewContext() *Context {
	logger := logrus.New()
	return &Context{
		Arg: ContextArg{
			Emulation: MachineTypeNone,
			Output:    "a.out",
		},
		Log:            logger.WithField("component", "xld"),
		SymbolMap:      make(map[string]*Symbol),
		Visited:        utils.NewMapSet[string](),
		FilePriority:   10000,
		DefaultVersion: VER_NDX_LOCAL,
		Errors:         NewErrorReporter(),
	}
}
