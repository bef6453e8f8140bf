package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/slotgraph/internal/ir"
)

// CompileFiles compiles node types from one or more CUE files. Files are
// unified in the order given, so node types keep their declaration order
// across files.
func CompileFiles(paths ...string) ([]ir.NodeTypeSpec, error) {
	if len(paths) == 0 {
		return nil, &CompileError{Field: "nodetype", Message: "no CUE files given"}
	}

	ctx := cuecontext.New()
	var root cue.Value
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		if i == 0 {
			root = v
		} else {
			root = root.Unify(v)
		}
	}
	return CompileNodeTypes(root)
}

// CompileDir compiles every .cue file under dir, in lexical path order.
func CompileDir(dir string) ([]ir.NodeTypeSpec, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}
	return CompileFiles(files...)
}

// FindCUEFiles walks dir and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
