package publish

import (
	"os"
	"path"
	"path/filepath"
	"sort"
)

// DataFiles lists every csv in dir plus the given artifacts (which may
// live anywhere), mapped under prefix in the repository. Artifacts that do
// not exist are skipped so that a stage which failed this run does not
// publish a stale file.
func DataFiles(dir, prefix string, artifacts ...string) ([]File, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var files []File
	seen := map[string]bool{}
	add := func(local string) {
		remote := path.Join(prefix, filepath.Base(local))
		if seen[remote] {
			return
		}
		seen[remote] = true
		files = append(files, File{Local: local, Remote: remote})
	}

	for _, m := range matches {
		add(m)
	}
	for _, a := range artifacts {
		if a == "" {
			continue
		}
		_, err := os.Stat(a)
		if err != nil {
			continue
		}
		add(a)
	}
	return files, nil
}

// RootFiles maps each local file to its base name at the repository root.
func RootFiles(locals ...string) []File {
	files := make([]File, 0, len(locals))
	for _, l := range locals {
		files = append(files, File{Local: l, Remote: filepath.Base(l)})
	}
	return files
}
