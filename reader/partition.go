package reader

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/vegasq/tablecat/types"
)

// partitionFile is one data file of a Hive-partitioned dataset together
// with the key=value pairs parsed from its directory path.
type partitionFile struct {
	path   string
	keys   []string
	values map[string]any
}

// discoverPartitionFiles walks a dataset root and collects its parquet
// files with their partition descriptors. Partition values are typed by
// string inference.
func discoverPartitionFiles(root string) ([]partitionFile, error) {
	var files []partitionFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".parquet") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		file := partitionFile{path: path, values: make(map[string]any)}
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			key, raw, ok := strings.Cut(part, "=")
			if !ok || strings.HasSuffix(part, ".parquet") {
				continue
			}
			value, _ := types.ParseString(raw)
			file.keys = append(file.keys, key)
			file.values[key] = value
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, &IOError{Path: root, Cause: err}
	}

	return files, nil
}

// matches reports whether the partition descriptor can satisfy the
// predicate conjunction. Predicates over unknown keys never prune.
func (f partitionFile) matches(preds []types.Predicate) bool {
	for _, pred := range preds {
		value, ok := f.values[pred.Column]
		if !ok {
			continue
		}
		result, null, err := types.Apply(value, pred.Op, pred.Value)
		if err != nil || null || !result {
			return false
		}
	}
	return true
}

// partitionKeys returns the union of partition keys over the files, in
// first-seen order.
func partitionKeys(files []partitionFile) []string {
	var keys []string
	for _, f := range files {
		for _, k := range f.keys {
			if !containsString(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	return keys
}
