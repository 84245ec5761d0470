package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed all:locales
var localeFS embed.FS

// Manager localizes the user-facing guidance messages (batch summaries and
// errors) the pipeline hands back to the presentation layer.
type Manager struct {
	bundle      *i18n.Bundle
	defaultLang string
	logger      *zap.Logger
	localizers  map[string]*i18n.Localizer
}

// NewManager loads the embedded TOML locales and prepares a localizer per
// available language.
func NewManager(defaultLang string, logger *zap.Logger) (*Manager, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language tag %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	m := &Manager{
		bundle:      bundle,
		defaultLang: defaultLang,
		logger:      logger.Named("i18n"),
		localizers:  make(map[string]*i18n.Localizer),
	}

	files, err := fs.ReadDir(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded locales: %w", err)
	}
	loaded := 0
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || filepath.Ext(name) != ".toml" {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			m.logger.Warn("failed to load locale file", zap.String("file", name), zap.Error(err))
			continue
		}
		// Filenames look like active.en.toml; the language code is the
		// second-to-last dot segment.
		parts := strings.Split(strings.TrimSuffix(name, ".toml"), ".")
		code := parts[len(parts)-1]
		m.localizers[code] = i18n.NewLocalizer(bundle, code)
		loaded++
	}
	if loaded == 0 {
		return nil, errors.New("no locale files loaded")
	}
	if _, ok := m.localizers[defaultLang]; !ok {
		m.localizers[defaultLang] = i18n.NewLocalizer(bundle, defaultLang)
	}

	m.logger.Info("i18n manager initialized",
		zap.String("default_language", defaultLang),
		zap.Int("loaded_languages", loaded),
	)
	return m, nil
}

// T localizes the message identified by key for lang, falling back to the
// default language and finally to the key itself.
func (m *Manager) T(lang, key string, data map[string]interface{}) string {
	localizer, ok := m.localizers[lang]
	if !ok {
		localizer = m.localizers[m.defaultLang]
	}
	localized, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		m.logger.Warn("failed to localize message", zap.String("key", key), zap.String("lang", lang), zap.Error(err))
		return key
	}
	return localized
}

// Languages returns the loaded language codes.
func (m *Manager) Languages() []string {
	langs := make([]string, 0, len(m.localizers))
	for code := range m.localizers {
		langs = append(langs, code)
	}
	return langs
}
