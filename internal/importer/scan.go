package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Pending is a trial-balance file waiting in <root>/import.
type Pending struct {
	Name string
	Path string
	Size int64
}

const (
	importDir    = "import"
	processedDir = "processed"
)

// Scan lists the files in <root>/import that a parser in reg accepts, by
// name. Hidden files and subdirectories are ignored.
func Scan(root string, reg *Registry) ([]Pending, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", importDir, err)
	}

	var out []Pending
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || reg.ForFile(name) == nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		out = append(out, Pending{Name: name, Path: filepath.Join(dir, name), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MarkProcessed moves <root>/import/<name> into import/processed. A file of
// the same name already there is kept and the new one gets a timestamp
// suffix.
func MarkProcessed(root, name string) error {
	dst := filepath.Join(root, importDir, processedDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	target := filepath.Join(dst, name)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(name)
		target = filepath.Join(dst, strings.TrimSuffix(name, ext)+"-"+time.Now().Format("20060102-150405")+ext)
	}
	if err := os.Rename(filepath.Join(root, importDir, name), target); err != nil {
		return fmt.Errorf("moving %s to processed: %w", name, err)
	}
	return nil
}
