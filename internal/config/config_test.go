package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.Theme != "light" {
		t.Errorf("expected theme light, got %s", cfg.Theme)
	}
	if !cfg.Watch {
		t.Error("expected watch to be true")
	}
}

func TestAddFolder(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.AddFolder("./docs", "Docs", nil)
	if err != nil {
		t.Fatalf("AddFolder failed: %v", err)
	}

	if len(cfg.Folders) != 1 {
		t.Fatalf("expected 1 folder, got %d", len(cfg.Folders))
	}
	if cfg.Folders[0].Key != "Docs" {
		t.Errorf("expected key Docs, got %s", cfg.Folders[0].Key)
	}

	// Same path again is a no-op.
	if err := cfg.AddFolder("./docs", "Other", nil); err != nil {
		t.Fatalf("AddFolder failed: %v", err)
	}
	if len(cfg.Folders) != 1 {
		t.Errorf("expected 1 folder after duplicate add, got %d", len(cfg.Folders))
	}
}

func TestNormalizeFolders(t *testing.T) {
	cfg := &Config{Folders: []Folder{{Path: "./test_docs"}}}
	cfg.normalizeFolders()

	absExpected, _ := filepath.Abs("./test_docs")
	if cfg.Folders[0].Path != absExpected {
		t.Errorf("expected path %s, got %s", absExpected, cfg.Folders[0].Path)
	}
	if cfg.Folders[0].Key != "test_docs" {
		t.Errorf("expected key test_docs, got %s", cfg.Folders[0].Key)
	}
}

func TestFolderByKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Folders = []Folder{{Path: "/tmp/docs", Key: "docs"}}

	if _, ok := cfg.FolderByKey("docs"); !ok {
		t.Error("expected to find folder docs")
	}
	if _, ok := cfg.FolderByKey("missing"); ok {
		t.Error("did not expect to find folder missing")
	}
}

func TestIsExcluded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude = []string{".git", "node_modules"}

	if !cfg.IsExcluded("/path/to/.git") {
		t.Error("expected .git to be excluded")
	}
	if !cfg.IsExcluded("/path/to/node_modules") {
		t.Error("expected node_modules to be excluded")
	}
	if cfg.IsExcluded("/path/to/README.md") {
		t.Error("expected README.md NOT to be excluded")
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.configPath = tmpFile
	cfg.Port = 9999
	cfg.HostURL = "http://localhost:7777"
	cfg.Folders = []Folder{{Path: "/tmp", Key: "Temp"}}
	cfg.Languages = map[string]string{".mdx": "markdown"}

	err := cfg.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Manual load to verify
	cfg2 := &Config{}
	err = cfg2.loadFromFile(tmpFile)
	if err != nil {
		t.Fatalf("loadFromFile failed: %v", err)
	}

	if cfg2.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg2.Port)
	}
	if cfg2.HostURL != "http://localhost:7777" {
		t.Errorf("host_url not saved: %q", cfg2.HostURL)
	}
	if len(cfg2.Folders) != 1 || cfg2.Folders[0].Key != "Temp" {
		t.Errorf("folder loading failed")
	}
	if cfg2.Languages[".mdx"] != "markdown" {
		t.Errorf("languages not saved: %+v", cfg2.Languages)
	}
}
