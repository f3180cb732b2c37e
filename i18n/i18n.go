// Package i18n holds the client-facing message catalogs.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
)

//go:embed locales/*.json
var locales embed.FS

var translations = make(map[string]map[string]string)
var DefaultLang = "en"

func init() {
	if err := load(); err != nil {
		panic(err)
	}
}

func load() error {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return err
	}
	for _, e := range entries {
		data, err := locales.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return err
		}
		var t map[string]string
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		translations[strings.TrimSuffix(e.Name(), ".json")] = t
	}
	return nil
}

// T returns the message for key in lang, falling back to English and then to
// the key itself.
func T(lang, key string) string {
	if t, ok := translations[lang]; ok {
		if val, ok := t[key]; ok {
			return val
		}
	}
	if lang != DefaultLang {
		return T(DefaultLang, key)
	}
	return key
}

// DetectLanguage picks the first supported language from Accept-Language.
func DetectLanguage(r *http.Request) string {
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return DefaultLang
	}
	for _, part := range strings.Split(accept, ",") {
		lang := strings.TrimSpace(strings.Split(part, ";")[0])
		if len(lang) >= 2 {
			lang = strings.ToLower(lang[:2])
			if _, ok := translations[lang]; ok {
				return lang
			}
		}
	}
	return DefaultLang
}
