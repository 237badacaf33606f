package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

//go:embed mime_types.toml
var mimeTypesTOML []byte

const (
	BackendHTTP  = "http"
	BackendLocal = "local"
)

type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Local   LocalConfig   `mapstructure:"local"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Editor  EditorConfig  `mapstructure:"editor"`
	Routes  RoutesConfig  `mapstructure:"routes"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
	Keys    KeyConfig     `mapstructure:"keys"`
}

// BackendConfig selects and configures the content-query collaborator.
type BackendConfig struct {
	Kind       string        `mapstructure:"kind"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
	SearchPath string        `mapstructure:"search_path"`
	RetirePath string        `mapstructure:"retire_path"`

	// StrictEndpoints only admits public https base URLs.
	StrictEndpoints bool `mapstructure:"strict_endpoints"`
}

// LocalConfig configures the bbolt/bleve workspace used when Backend.Kind is "local".
type LocalConfig struct {
	Path        string        `mapstructure:"path"`
	SearchIndex string        `mapstructure:"search_index"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type QueueConfig struct {
	PageSize    int           `mapstructure:"page_size"`
	Debounce    time.Duration `mapstructure:"debounce"`
	Statuses    []string      `mapstructure:"statuses"`
	Categories  []string      `mapstructure:"categories"`
	DefaultIcon string        `mapstructure:"default_icon"`
}

type EditorConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Opener  string `mapstructure:"opener"`
}

// RouteClass is one group of media types sharing a destination editor.
type RouteClass struct {
	Path      string   `mapstructure:"path" toml:"path"`
	MimeTypes []string `mapstructure:"mime_types" toml:"mime_types"`
}

type RoutesConfig struct {
	QuestionSet RouteClass `mapstructure:"question_set" toml:"question_set"`
	Generic     RouteClass `mapstructure:"generic" toml:"generic"`
	Collection  RouteClass `mapstructure:"collection" toml:"collection"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type UIConfig struct {
	Colors  UIColors      `mapstructure:"colors"`
	Preview PreviewConfig `mapstructure:"preview"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type PreviewConfig struct {
	WordWrapMaxWidth int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth int `mapstructure:"word_wrap_min_width"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit    string `mapstructure:"quit"`
	Search  string `mapstructure:"search"`
	Filter  string `mapstructure:"filter"`
	Sort    string `mapstructure:"sort"`
	Delete  string `mapstructure:"delete"`
	Refresh string `mapstructure:"refresh"`
	Preview string `mapstructure:"preview"`
	Back    string `mapstructure:"back"`
}

// DefaultRoutes returns the embedded editor routing table.
func DefaultRoutes() (RoutesConfig, error) {
	var routes RoutesConfig
	if err := toml.Unmarshal(mimeTypesTOML, &routes); err != nil {
		return RoutesConfig{}, fmt.Errorf("parsing embedded mime types: %w", err)
	}
	return routes, nil
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".reviewq")

	// The embedded table is compiled in; a parse failure is caught by tests.
	routes, _ := DefaultRoutes()

	return &Config{
		Backend: BackendConfig{
			Kind:       BackendHTTP,
			BaseURL:    "http://localhost:3000/api/content",
			Timeout:    15 * time.Second,
			UserAgent:  "reviewq/1.0 (https://github.com/pders01/reviewq)",
			SearchPath: "/action/composite/v3/search",
			RetirePath: "/action/content/v3/retire",
		},
		Local: LocalConfig{
			Path:        filepath.Join(dataDir, "workspace.db"),
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
			Timeout:     1 * time.Second,
		},
		Queue: QueueConfig{
			PageSize: 10,
			Debounce: 300 * time.Millisecond,
			Statuses: []string{"Review", "FlagReview"},
			Categories: []string{
				"Course",
				"Learning Resource",
				"Explanation Content",
				"Practice Question Set",
				"Teacher Resource",
				"Content Playlist",
				"Digital Textbook",
				"eTextbook",
			},
			DefaultIcon: "/logo.png",
		},
		Editor: EditorConfig{
			BaseURL: "http://localhost:3000",
			Opener:  getDefaultOpener(),
		},
		Routes: routes,
		Server: ServerConfig{
			Addr:           ":8088",
			RequestTimeout: 20 * time.Second,
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "reviewq.log"),
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Preview: PreviewConfig{
				WordWrapMaxWidth: 120,
				WordWrapMinWidth: 40,
			},
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:    "q",
				Search:  "/",
				Filter:  "f",
				Sort:    "t",
				Delete:  "x",
				Refresh: "r",
				Preview: "p",
				Back:    "esc",
			},
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	setDefaults(v, "", reflect.ValueOf(*cfg))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "reviewq")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REVIEWQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Explicitly empty values fall back to defaults.
	fillDefaults(&config, cfg)
	expandPaths(&config)

	return &config, nil
}

// setDefaults registers every leaf field under its dotted mapstructure key.
// Viper only consults the environment for keys it knows about.
func setDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		key := typ.Field(i).Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		field := val.Field(i)
		if field.Kind() == reflect.Struct {
			setDefaults(v, key, field)
			continue
		}
		v.SetDefault(key, field.Interface())
	}
}

// fillDefaults copies default values into fields left zero by a partial config file.
func fillDefaults(cfg, def *Config) {
	setString := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	setDuration := func(dst *time.Duration, src time.Duration) {
		if *dst == 0 {
			*dst = src
		}
	}
	setStrings := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = append([]string(nil), src...)
		}
	}

	setString(&cfg.Backend.Kind, def.Backend.Kind)
	setString(&cfg.Backend.BaseURL, def.Backend.BaseURL)
	setDuration(&cfg.Backend.Timeout, def.Backend.Timeout)
	setString(&cfg.Backend.UserAgent, def.Backend.UserAgent)
	setString(&cfg.Backend.SearchPath, def.Backend.SearchPath)
	setString(&cfg.Backend.RetirePath, def.Backend.RetirePath)

	setString(&cfg.Local.Path, def.Local.Path)
	setString(&cfg.Local.SearchIndex, def.Local.SearchIndex)
	setDuration(&cfg.Local.Timeout, def.Local.Timeout)

	if cfg.Queue.PageSize <= 0 {
		cfg.Queue.PageSize = def.Queue.PageSize
	}
	setDuration(&cfg.Queue.Debounce, def.Queue.Debounce)
	setStrings(&cfg.Queue.Statuses, def.Queue.Statuses)
	setStrings(&cfg.Queue.Categories, def.Queue.Categories)
	setString(&cfg.Queue.DefaultIcon, def.Queue.DefaultIcon)

	setString(&cfg.Editor.BaseURL, def.Editor.BaseURL)
	setString(&cfg.Editor.Opener, def.Editor.Opener)

	for _, pair := range []struct{ dst, src *RouteClass }{
		{&cfg.Routes.QuestionSet, &def.Routes.QuestionSet},
		{&cfg.Routes.Generic, &def.Routes.Generic},
		{&cfg.Routes.Collection, &def.Routes.Collection},
	} {
		setString(&pair.dst.Path, pair.src.Path)
		setStrings(&pair.dst.MimeTypes, pair.src.MimeTypes)
	}

	setString(&cfg.Server.Addr, def.Server.Addr)
	setDuration(&cfg.Server.RequestTimeout, def.Server.RequestTimeout)
	setString(&cfg.Log.Level, def.Log.Level)
	setString(&cfg.Log.File, def.Log.File)

	colors, defColors := &cfg.UI.Colors, def.UI.Colors
	setString(&colors.Primary, defColors.Primary)
	setString(&colors.Secondary, defColors.Secondary)
	setString(&colors.Accent, defColors.Accent)
	setString(&colors.Background, defColors.Background)
	setString(&colors.Surface, defColors.Surface)
	setString(&colors.Text, defColors.Text)
	setString(&colors.Muted, defColors.Muted)
	setString(&colors.Error, defColors.Error)
	setString(&colors.Success, defColors.Success)
	if cfg.UI.Preview.WordWrapMaxWidth <= 0 {
		cfg.UI.Preview.WordWrapMaxWidth = def.UI.Preview.WordWrapMaxWidth
	}
	if cfg.UI.Preview.WordWrapMinWidth <= 0 {
		cfg.UI.Preview.WordWrapMinWidth = def.UI.Preview.WordWrapMinWidth
	}

	setString(&cfg.Keys.Modifier, def.Keys.Modifier)
	keys, defKeys := &cfg.Keys.Bindings, def.Keys.Bindings
	setString(&keys.Quit, defKeys.Quit)
	setString(&keys.Search, defKeys.Search)
	setString(&keys.Filter, defKeys.Filter)
	setString(&keys.Sort, defKeys.Sort)
	setString(&keys.Delete, defKeys.Delete)
	setString(&keys.Refresh, defKeys.Refresh)
	setString(&keys.Preview, defKeys.Preview)
	setString(&keys.Back, defKeys.Back)
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Local.Path = expandPath(cfg.Local.Path)
	cfg.Local.SearchIndex = expandPath(cfg.Local.SearchIndex)
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Convert durations to strings for TOML readability
	backendCfg := map[string]interface{}{
		"kind":        config.Backend.Kind,
		"base_url":    config.Backend.BaseURL,
		"timeout":     config.Backend.Timeout.String(),
		"user_agent":  config.Backend.UserAgent,
		"search_path": config.Backend.SearchPath,
		"retire_path": config.Backend.RetirePath,

		"strict_endpoints": config.Backend.StrictEndpoints,
	}

	localCfg := map[string]interface{}{
		"path":         config.Local.Path,
		"search_index": config.Local.SearchIndex,
		"timeout":      config.Local.Timeout.String(),
	}

	queueCfg := map[string]interface{}{
		"page_size":    config.Queue.PageSize,
		"debounce":     config.Queue.Debounce.String(),
		"statuses":     config.Queue.Statuses,
		"categories":   config.Queue.Categories,
		"default_icon": config.Queue.DefaultIcon,
	}

	serverCfg := map[string]interface{}{
		"addr":            config.Server.Addr,
		"request_timeout": config.Server.RequestTimeout.String(),
	}

	editorCfg := map[string]interface{}{
		"base_url": config.Editor.BaseURL,
		"opener":   config.Editor.Opener,
	}

	uiCfg := map[string]interface{}{
		"colors": config.UI.Colors,
		"preview": map[string]interface{}{
			"word_wrap_max_width": config.UI.Preview.WordWrapMaxWidth,
			"word_wrap_min_width": config.UI.Preview.WordWrapMinWidth,
		},
	}

	v.Set("backend", backendCfg)
	v.Set("local", localCfg)
	v.Set("queue", queueCfg)
	v.Set("editor", editorCfg)
	v.Set("routes", config.Routes)
	v.Set("server", serverCfg)
	v.Set("log", config.Log)
	v.Set("ui", uiCfg)
	v.Set("keys", config.Keys)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
