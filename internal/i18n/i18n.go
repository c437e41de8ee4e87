// Package i18n serves the English, Arabic and Kurdish UI strings.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLang is used for unknown or empty language codes.
const DefaultLang = "en"

// order is the display order of the language switcher.
var order = []string{"en", "ar", "ku"}

var rtl = map[string]bool{"ar": true, "ku": true}

// Language describes one selectable language.
type Language struct {
	Code string
	Name string
}

// Bundle holds every translation table.
type Bundle struct {
	tables map[string]map[string]string
}

// Load parses the embedded locale files.
func Load() (*Bundle, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	b := &Bundle{tables: make(map[string]map[string]string)}
	for _, e := range entries {
		data, err := localeFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		table := make(map[string]string)
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		b.tables[strings.TrimSuffix(e.Name(), ".yaml")] = table
	}

	if _, ok := b.tables[DefaultLang]; !ok {
		return nil, fmt.Errorf("missing %s locale", DefaultLang)
	}
	return b, nil
}

// MustLoad is Load for package initialisation and tests.
func MustLoad() *Bundle {
	b, err := Load()
	if err != nil {
		panic(err)
	}
	return b
}

// T looks up key in lang, falling back to English and then to the key.
func (b *Bundle) T(lang, key string) string {
	if v, ok := b.tables[lang][key]; ok {
		return v
	}
	if v, ok := b.tables[DefaultLang][key]; ok {
		return v
	}
	return key
}

// Normalize maps unknown codes to DefaultLang.
func (b *Bundle) Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := b.tables[lang]; ok {
		return lang
	}
	return DefaultLang
}

// Languages lists the available languages in switcher order.
func (b *Bundle) Languages() []Language {
	var out []Language
	seen := make(map[string]bool)
	for _, code := range order {
		if _, ok := b.tables[code]; ok {
			out = append(out, Language{Code: code, Name: b.T(code, "lang_name")})
			seen[code] = true
		}
	}
	var rest []string
	for code := range b.tables {
		if !seen[code] {
			rest = append(rest, code)
		}
	}
	sort.Strings(rest)
	for _, code := range rest {
		out = append(out, Language{Code: code, Name: b.T(code, "lang_name")})
	}
	return out
}

// Keys returns every key of lang, sorted.
func (b *Bundle) Keys(lang string) []string {
	keys := make([]string, 0, len(b.tables[lang]))
	for k := range b.tables[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dir returns the text direction for lang.
func Dir(lang string) string {
	if rtl[lang] {
		return "rtl"
	}
	return "ltr"
}
