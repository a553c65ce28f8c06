package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IsInputFile reports whether a path looks like an XCSP3 instance file.
func IsInputFile(path string) bool {
	return strings.HasSuffix(path, ".xml") || strings.HasSuffix(path, ".xml.lzma")
}

// DiscoverInputs resolves the argument list into concrete input files.
// File arguments are taken as given; directory arguments are walked
// recursively for .xml and .xml.lzma files, skipping hidden
// directories. The result is sorted and de-duplicated so batch order is
// deterministic.
func DiscoverInputs(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var inputs []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		inputs = append(inputs, path)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			if !IsInputFile(arg) {
				return nil, fmt.Errorf("input %s: not an .xml or .xml.lzma file", arg)
			}
			add(arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if name := d.Name(); name != arg && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsInputFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}

	sort.Strings(inputs)
	return inputs, nil
}
