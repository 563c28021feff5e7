package linker

import (
	"github.com/go-xld/xld/pkg/utils"
	"os"
)

type File struct {
	Name     string
	Contents []byte

	Parent *File
}

func MustNewFile(filename string) *File {
	contents, err := os.ReadFile(filename)
	utils.MustNo(err)
	return &File{
		Name:     filename,
		Contents: contents,
	}
}

func OpenLibrary(path string) *File {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	file := &File{Name: path, Contents: contents}
	ty := GetMachineTypeFromContents(file.Contents)
	if ty == MachineTypeNone || ty == MachineTypeX86_64 {
		return file
	}

	utils.Fatal("incompatible file")
	return nil
}

// FindLibrary resolves a bare -lname into a search-path hit, preferring
// a shared object over a static archive the way the dynamic linker's
// own default ordering does; -static is not modeled since this linker
// always has an interpreter-free, statically-resolved TLS/PLT story
// for objects and only treats DSOs as import sources (§2 sharedfile.go).
func FindLibrary(ctx *Context, name string) *File {
	for _, dir := range ctx.Arg.LibraryPaths {
		stem := dir + "/lib" + name
		if f := OpenLibrary(stem + ".so"); f != nil {
			return f
		}
		if f := OpenLibrary(stem + ".a"); f != nil {
			return f
		}
	}

	utils.Fatal("library not found")
	return nil
}
