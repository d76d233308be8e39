// Package config manages YAML-based configuration, CLI flags, and folder
// settings for the embedded host.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Folder represents a directory served as a collection by the embedded host.
type Folder struct {
	Path    string   `yaml:"path" json:"path"`
	Key     string   `yaml:"key" json:"key"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Config holds all configuration options for CodeDeck.
type Config struct {
	// Port is the UI server port.
	Port int `yaml:"port"`

	// HostURL points at a remote capability host. Empty means the embedded
	// host serves the configured folders instead.
	HostURL string `yaml:"host_url,omitempty"`
	Token   string `yaml:"token,omitempty"`

	// Folders served by the embedded host, one collection each.
	Folders []Folder `yaml:"folders,omitempty" json:"folders"`

	Theme   string   `yaml:"theme"`
	Watch   bool     `yaml:"watch"`
	Open    bool     `yaml:"open"`
	Exclude []string `yaml:"exclude"`

	// Languages maps file extensions to editor language names, overriding
	// the built-in lookup.
	Languages map[string]string `yaml:"languages,omitempty"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Port:    8080,
		Theme:   "light",
		Watch:   true,
		Open:    false,
		Exclude: []string{"node_modules", ".git", ".svn"},
	}
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/codedeck"
	}
	return filepath.Join(home, ".config", "codedeck")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Load loads configuration from file and command line flags
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path := flag.String("path", "", "Directory served by the embedded host")
	port := flag.Int("port", 0, "UI server port")
	hostURL := flag.String("host", "", "Remote capability host URL")
	token := flag.String("token", "", "Bearer token for the remote host")
	theme := flag.String("theme", "", "Default theme (light/dark)")
	watch := flag.Bool("watch", true, "Enable file watching (embedded host)")
	open := flag.Bool("open", false, "Open browser on startup")
	configFile := flag.String("config", "", "Configuration file path")

	flag.StringVar(path, "p", "", "Directory served by the embedded host (shorthand)")

	flag.Parse()

	// Determine config file path
	var cfgPath string
	if *configFile != "" {
		cfgPath = *configFile
	} else {
		globalConfig := GetConfigPath()
		if _, err := os.Stat(globalConfig); err == nil {
			cfgPath = globalConfig
		} else if _, err := os.Stat("codedeck.yaml"); err == nil {
			cfgPath = "codedeck.yaml"
		}
	}

	if cfgPath != "" {
		if err := cfg.loadFromFile(cfgPath); err != nil && *configFile != "" {
			// Only return error if user explicitly specified config file
			return nil, err
		}
		cfg.configPath = cfgPath
	} else {
		cfg.configPath = GetConfigPath()
	}

	// Environment overrides (godotenv is loaded in main before this runs)
	if v := os.Getenv("CODEDECK_HOST_URL"); v != "" {
		cfg.HostURL = v
	}
	if v := os.Getenv("CODEDECK_TOKEN"); v != "" {
		cfg.Token = v
	}

	// Command line flags override config file (only if explicitly set)
	if *path != "" {
		// CLI --path overrides saved folders and forces the embedded host.
		cfg.Folders = nil
		cfg.HostURL = ""
		if err := cfg.AddFolder(*path, "", nil); err != nil {
			return nil, err
		}
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *hostURL != "" {
		cfg.HostURL = *hostURL
	}
	if *token != "" {
		cfg.Token = *token
	}
	if *theme != "" {
		cfg.Theme = *theme
	}
	cfg.Watch = *watch
	cfg.Open = *open

	cfg.normalizeFolders()

	return cfg, nil
}

// normalizeFolders resolves folder paths to absolute and fills missing keys.
func (c *Config) normalizeFolders() {
	for i := range c.Folders {
		absPath, err := filepath.Abs(c.Folders[i].Path)
		if err == nil {
			c.Folders[i].Path = absPath
		}
		if c.Folders[i].Key == "" {
			c.Folders[i].Key = filepath.Base(c.Folders[i].Path)
		}
	}
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Save saves the current configuration to the config file
func (c *Config) Save() error {
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// Copy without internal fields for saving
	saveConfig := struct {
		Port      int               `yaml:"port"`
		HostURL   string            `yaml:"host_url,omitempty"`
		Token     string            `yaml:"token,omitempty"`
		Folders   []Folder          `yaml:"folders,omitempty"`
		Theme     string            `yaml:"theme"`
		Watch     bool              `yaml:"watch"`
		Open      bool              `yaml:"open"`
		Exclude   []string          `yaml:"exclude"`
		Languages map[string]string `yaml:"languages,omitempty"`
	}{
		Port:      c.Port,
		HostURL:   c.HostURL,
		Token:     c.Token,
		Folders:   c.Folders,
		Theme:     c.Theme,
		Watch:     c.Watch,
		Open:      c.Open,
		Exclude:   c.Exclude,
		Languages: c.Languages,
	}

	data, err := yaml.Marshal(saveConfig)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configPath, data, 0644)
}

// AddFolder adds a folder with the given path, key and excludes.
func (c *Config) AddFolder(path, key string, exclude []string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	for _, f := range c.Folders {
		if f.Path == absPath {
			return nil // Already exists
		}
	}

	if key == "" {
		key = filepath.Base(absPath)
	}

	c.Folders = append(c.Folders, Folder{
		Path:    absPath,
		Key:     key,
		Exclude: exclude,
	})

	return nil
}

// FolderByKey returns the folder serving the given collection key.
func (c *Config) FolderByKey(key string) (Folder, bool) {
	for _, f := range c.Folders {
		if f.Key == key {
			return f, true
		}
	}
	return Folder{}, false
}

// IsExcluded checks if a path should be excluded
func (c *Config) IsExcluded(path string) bool {
	base := filepath.Base(path)
	for _, exclude := range c.Exclude {
		if matched, _ := filepath.Match(exclude, base); matched {
			return true
		}
	}
	return false
}

// IsFolderExcluded checks if a relative path should be excluded by
// folder-level excludes.
func (c *Config) IsFolderExcluded(relPath string, folderExcludes []string) bool {
	if len(folderExcludes) == 0 {
		return false
	}
	for _, pattern := range folderExcludes {
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
		base := filepath.Base(relPath)
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		clean := filepath.Clean(pattern)
		if relPath == clean || strings.HasPrefix(relPath, clean+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// GetConfigFilePath returns the path to the config file
func (c *Config) GetConfigFilePath() string {
	return c.configPath
}
