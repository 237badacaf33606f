package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	def := defaultConfig()
	return &Config{
		Backend: BackendConfig{
			Kind:       BackendLocal,
			BaseURL:    "http://127.0.0.1:0",
			Timeout:    5 * time.Second,
			UserAgent:  "reviewq-test/1.0",
			SearchPath: def.Backend.SearchPath,
			RetirePath: def.Backend.RetirePath,
		},
		Local: LocalConfig{
			Path:    ":memory:", // tests open their own temp stores
			Timeout: 1 * time.Second,
		},
		Queue: QueueConfig{
			PageSize:    10,
			Debounce:    300 * time.Millisecond,
			Statuses:    def.Queue.Statuses,
			Categories:  def.Queue.Categories,
			DefaultIcon: def.Queue.DefaultIcon,
		},
		Editor: EditorConfig{
			BaseURL: "http://editor.test",
			Opener:  "true",
		},
		Routes: def.Routes,
		Server: def.Server,
		Log:    LogConfig{Level: "off"},
		UI:     def.UI,
		Keys:   def.Keys,
	}
}
