package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// Manager holds the translation catalog.
type Manager struct {
	defaultLang  string
	translations map[string]map[string]string
	logger       *slog.Logger
	mu           sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger the Manager uses.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithDefaultLang sets the fallback language.
func WithDefaultLang(lang string) Option {
	return func(m *Manager) {
		m.defaultLang = lang
	}
}

// NewManager builds a Manager from the embedded locale files.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaultLang:  "en-US",
		translations: make(map[string]map[string]string),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.loadEmbeddedTranslations(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) loadEmbeddedTranslations() error {
	entries, err := embeddedLocales.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("failed to read locales directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(entry.Name(), ".json")
		data, err := embeddedLocales.ReadFile("locales/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}

		var content map[string]string
		if err := json.Unmarshal(data, &content); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", entry.Name(), err)
		}

		m.mu.Lock()
		m.translations[lang] = content
		m.mu.Unlock()
	}

	return nil
}

// LoadFromDir merges translation files from an external directory. Missing
// directory is not an error; deployments without overrides run on the
// embedded catalog.
func (m *Manager) LoadFromDir(dir string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read external locales directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		lang := strings.TrimSuffix(file.Name(), ".json")
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			m.logger.Warn("failed to read external locale file", "file", file.Name(), "error", err)
			continue
		}

		var content map[string]string
		if err := json.Unmarshal(data, &content); err != nil {
			m.logger.Warn("failed to unmarshal external locale file", "file", file.Name(), "error", err)
			continue
		}

		m.mu.Lock()
		if _, exists := m.translations[lang]; !exists {
			m.translations[lang] = make(map[string]string)
		}
		for k, v := range content {
			m.translations[lang][k] = v
		}
		m.mu.Unlock()
	}
	return nil
}

// Translate resolves a key for the requested language, falling back to the
// default language and finally to the key itself.
func (m *Manager) Translate(lang, key string, args ...interface{}) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tag, err := language.Parse(lang)
	if err == nil {
		lang = tag.String()
	}

	if trans, ok := m.translations[lang]; ok {
		if val, ok := trans[key]; ok {
			if len(args) > 0 {
				return fmt.Sprintf(val, args...)
			}
			return val
		}
	}

	if lang != m.defaultLang {
		if trans, ok := m.translations[m.defaultLang]; ok {
			if val, ok := trans[key]; ok {
				if len(args) > 0 {
					return fmt.Sprintf(val, args...)
				}
				return val
			}
		}
	}

	return key
}

// GetSupportedLanguages lists the loaded languages.
func (m *Manager) GetSupportedLanguages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	langs := make([]string, 0, len(m.translations))
	for k := range m.translations {
		langs = append(langs, k)
	}
	return langs
}

// GetTranslations returns a copy of the full table for one language.
func (m *Manager) GetTranslations(lang string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if trans, ok := m.translations[lang]; ok {
		out := make(map[string]string, len(trans))
		for k, v := range trans {
			out[k] = v
		}
		return out
	}
	return nil
}
