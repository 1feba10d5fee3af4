package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	toml "github.com/pelletier/go-toml/v2"

	"todolist/internal/remote"
)

const (
	AppName               = "todolist"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todo.db"
	DefaultLogName        = "todo.log"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

type Keymap struct {
	Quit      string `toml:"quit"`
	Add       string `toml:"add"`
	Up        string `toml:"up"`
	Down      string `toml:"down"`
	Toggle    string `toml:"toggle"`
	Delete    string `toml:"delete"`
	Edit      string `toml:"edit"`
	Search    string `toml:"search"`
	Confirm   string `toml:"confirm"`
	Cancel    string `toml:"cancel"`
	Save      string `toml:"save"`
	NextField string `toml:"next_field"`
	Share     string `toml:"share"`
}

type Config struct {
	DBPath    string `toml:"db_path"`
	SeedURL   string `toml:"seed_url"`
	LogPath   string `toml:"log_path"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	Keys      Keymap `toml:"keys"`
}

// ResolveConfigPath returns $XDG_CONFIG_HOME/todolist/config.toml, falling
// back to ~/.config/todolist/config.toml, or a file in the working directory
// when no home is known.
func ResolveConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, DefaultConfigFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(home, ".config", AppName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first if
// the file does not exist. created reports whether that happened. Relative
// db_path and log_path values are resolved against the config's directory.
func LoadOrCreate(path string) (cfg Config, created bool, err error) {
	cfg = Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, false, err
		}
		return cfg.resolve(filepath.Dir(path)), true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, false, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, false, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.SeedURL == "" {
		cfg.SeedURL = remote.DefaultSeedURL
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogName
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	cfg.Keys = cfg.Keys.withDefaults(Default().Keys)
	return cfg.resolve(filepath.Dir(path)), false, nil
}

func (c Config) resolve(dir string) Config {
	c.DBPath = resolvePath(dir, c.DBPath)
	c.LogPath = resolvePath(dir, c.LogPath)
	return c
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "file:") {
		return p
	}
	return filepath.Join(dir, p)
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (k Keymap) withDefaults(d Keymap) Keymap {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&k.Quit, d.Quit)
	fill(&k.Add, d.Add)
	fill(&k.Up, d.Up)
	fill(&k.Down, d.Down)
	fill(&k.Toggle, d.Toggle)
	fill(&k.Delete, d.Delete)
	fill(&k.Edit, d.Edit)
	fill(&k.Search, d.Search)
	fill(&k.Confirm, d.Confirm)
	fill(&k.Cancel, d.Cancel)
	fill(&k.Save, d.Save)
	fill(&k.NextField, d.NextField)
	fill(&k.Share, d.Share)
	return k
}

func Default() Config {
	return Config{
		DBPath:    DefaultDBName,
		SeedURL:   remote.DefaultSeedURL,
		LogPath:   DefaultLogName,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Keys: Keymap{
			Quit:      "q",
			Add:       "a",
			Up:        "k",
			Down:      "j",
			Toggle:    " ",
			Delete:    "d",
			Edit:      "enter",
			Search:    "/",
			Confirm:   "enter",
			Cancel:    "esc",
			Save:      "ctrl+s",
			NextField: "tab",
			Share:     "s",
		},
	}
}
