package hostsrv

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codedeck/codedeck/internal/config"
)

// store resolves collection-prefixed record paths ("key/rel") onto the
// configured folders and performs the actual filesystem operations.
type store struct {
	cfg *config.Config
}

// errTraversal marks record paths that try to escape their folder.
var errTraversal = os.ErrPermission

// resolve splits a record path into its folder and an absolute on-disk path.
func (s *store) resolve(recordPath string) (config.Folder, string, error) {
	recordPath = strings.Trim(recordPath, "/")
	if recordPath == "" {
		return config.Folder{}, "", os.ErrNotExist
	}

	parts := strings.SplitN(recordPath, "/", 2)
	folder, ok := s.cfg.FolderByKey(parts[0])
	if !ok {
		return config.Folder{}, "", os.ErrNotExist
	}

	rel := ""
	if len(parts) > 1 {
		rel = parts[1]
	}

	// Security: prevent path traversal
	if strings.Contains(rel, "..") {
		return config.Folder{}, "", errTraversal
	}

	return folder, filepath.Join(folder.Path, filepath.FromSlash(rel)), nil
}

// entry is one file in a listing.
type entry struct {
	Path string `json:"path"`
}

// listFolder walks one folder and returns its record paths, excluded
// entries skipped, in walk order (the client sorts when it builds trees).
func (s *store) listFolder(folder config.Folder) ([]entry, error) {
	var entries []entry

	err := filepath.Walk(folder.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if s.cfg.IsExcluded(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(folder.Path, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if s.cfg.IsFolderExcluded(rel, folder.Exclude) {
			return nil
		}

		entries = append(entries, entry{Path: folder.Key + "/" + rel})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// listAll lists every configured folder.
func (s *store) listAll() ([]entry, error) {
	var all []entry
	for _, folder := range s.cfg.Folders {
		entries, err := s.listFolder(folder)
		if err != nil {
			continue
		}
		all = append(all, entries...)
	}
	return all, nil
}

// read returns the file's content.
func (s *store) read(recordPath string) ([]byte, error) {
	_, absPath, err := s.resolve(recordPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(absPath)
}

// write replaces the file's content, creating parent directories as needed.
// It reports whether the file existed before.
func (s *store) write(recordPath string, content []byte) (existed bool, err error) {
	_, absPath, err := s.resolve(recordPath)
	if err != nil {
		return false, err
	}

	_, statErr := os.Stat(absPath)
	existed = statErr == nil

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return existed, err
	}
	return existed, os.WriteFile(absPath, content, 0644)
}

// stat returns metadata for the file.
func (s *store) stat(recordPath string) (os.FileInfo, error) {
	_, absPath, err := s.resolve(recordPath)
	if err != nil {
		return nil, err
	}
	return os.Stat(absPath)
}
