package i18n

import (
	"embed"
	"fmt"
	"log/slog"
)

// LocaleFS — встроенные JSON-каталоги.
//
//go:embed locales/*.json
var LocaleFS embed.FS

// LoadFromEmbedFS загружает locales/es.json и locales/en.json.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	langs := []string{"es", "en"}

	for _, lang := range langs {
		path := fmt.Sprintf("locales/%s.json", lang)
		data, err := LocaleFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("i18n: не удалось прочитать %s: %w", path, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
	}

	logger.Info("i18n каталоги загружены", slog.Int("languages", len(langs)))
	return nil
}
