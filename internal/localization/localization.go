// Package localization loads per-language message catalogs from JSON files
// and renders them for OTP mails and chat notifications.
package localization

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultLanguage is used when a key is missing in the requested language.
const DefaultLanguage = "en"

// Localizer holds one key->text map per language code.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads every <lang>.json file from dir.
func NewLocalizer(dir string) (*Localizer, error) {
	l := &Localizer{translations: make(map[string]map[string]string)}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", file.Name(), err)
		}
		if err := l.Add(strings.TrimSuffix(file.Name(), ".json"), data); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add merges a JSON catalog for lang.
func (l *Localizer) Add(lang string, data []byte) error {
	var catalog map[string]string
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse locale %s: %w", lang, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.translations[lang] == nil {
		l.translations[lang] = make(map[string]string, len(catalog))
	}
	for k, v := range catalog {
		l.translations[lang][k] = v
	}
	return nil
}

// GetString returns the text for key in lang, falling back to English and
// then to the key itself.
func (l *Localizer) GetString(lang, key string) string {
	if l == nil {
		return key
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if value, ok := l.translations[lang][key]; ok {
		return value
	}
	if value, ok := l.translations[DefaultLanguage][key]; ok {
		return value
	}
	return key
}

// Format renders key with {name} placeholders replaced from args.
func (l *Localizer) Format(lang, key string, args map[string]string) string {
	text := l.GetString(lang, key)
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Languages lists loaded language codes.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		out = append(out, lang)
	}
	return out
}
