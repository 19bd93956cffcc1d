// Package catalog loads the embedded message catalogs used by the tour.
//
// Catalog files live at locales/<locale>/<namespace>.yaml. Every key in a
// file is prefixed with its namespace, and every locale must translate each
// key the base locale defines.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other catalog is checked against.
const BaseLocale = "en"

const catalogGlob = "locales/*/*.yaml"

// ErrMissingTranslation reports a locale lacking a key the base locale defines.
var ErrMissingTranslation = errors.New("missing translation")

type file struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every loaded locale, keyed by locale then
// namespace then message key.
type Bundle struct {
	messages map[string]map[string]map[string]string
}

//go:embed locales/*/*.yaml
var embedded embed.FS

var defaultBundle = mustLoadEmbedded()

// Default returns the embedded bundle, already registered with x/text/message.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads the catalogs compiled into this package.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embedded)
}

// LoadFromFS loads and validates every catalog file under locales/.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, catalogGlob)
	if err != nil {
		return nil, fmt.Errorf("glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files under %s", catalogGlob)
	}
	slices.Sort(paths)

	b := &Bundle{messages: map[string]map[string]map[string]string{}}
	for _, p := range paths {
		f, err := readFile(fsys, p)
		if err != nil {
			return nil, err
		}
		if err := b.add(p, f); err != nil {
			return nil, err
		}
	}
	if !b.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %q has no catalog", BaseLocale)
	}
	if err := b.checkParity(); err != nil {
		return nil, err
	}
	return b, nil
}

func readFile(fsys fs.FS, p string) (file, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return file{}, fmt.Errorf("read catalog %s: %w", p, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return file{}, fmt.Errorf("parse catalog %s: %w", p, err)
	}
	f.Locale = strings.TrimSpace(f.Locale)
	f.Namespace = strings.TrimSpace(f.Namespace)
	return f, nil
}

func (b *Bundle) add(p string, f file) error {
	dir, name := path.Split(p)
	wantLocale := path.Base(dir)
	wantNamespace := strings.TrimSuffix(name, path.Ext(name))

	switch {
	case f.Locale != wantLocale:
		return fmt.Errorf("catalog %s: locale %q, want %q", p, f.Locale, wantLocale)
	case f.Namespace != wantNamespace:
		return fmt.Errorf("catalog %s: namespace %q, want %q", p, f.Namespace, wantNamespace)
	case len(f.Messages) == 0:
		return fmt.Errorf("catalog %s: no messages", p)
	}
	if _, err := language.Parse(f.Locale); err != nil {
		return fmt.Errorf("catalog %s: %w", p, err)
	}

	namespaces := b.messages[f.Locale]
	if namespaces == nil {
		namespaces = map[string]map[string]string{}
		b.messages[f.Locale] = namespaces
	}
	if _, dup := namespaces[f.Namespace]; dup {
		return fmt.Errorf("catalog %s: namespace %q loaded twice", p, f.Namespace)
	}

	prefix := f.Namespace + "."
	out := make(map[string]string, len(f.Messages))
	for key, value := range f.Messages {
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, prefix) || key == prefix {
			return fmt.Errorf("catalog %s: key %q must start with %q", p, key, prefix)
		}
		out[key] = value
	}
	namespaces[f.Namespace] = out
	return nil
}

func (b *Bundle) checkParity() error {
	base := b.messages[BaseLocale]
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		for namespace, messages := range base {
			translated := b.messages[locale][namespace]
			for key := range messages {
				if _, ok := translated[key]; !ok {
					return fmt.Errorf("locale %s key %q: %w", locale, key, ErrMissingTranslation)
				}
			}
		}
	}
	return nil
}

// Register publishes every message to the x/text/message default catalog.
func (b *Bundle) Register() error {
	for _, locale := range b.Locales() {
		tag := language.MustParse(locale)
		messages := b.LocaleMessages(locale)
		for _, key := range sortedKeys(messages) {
			if err := message.SetString(tag, key, messages[key]); err != nil {
				return fmt.Errorf("register %s %s: %w", locale, key, err)
			}
		}
	}
	return nil
}

// HasLocale reports whether any catalog was loaded for locale.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.messages[strings.TrimSpace(locale)]
	return ok
}

// Locales returns the loaded locales in sorted order.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	return sortedKeys(b.messages)
}

// LocaleMessages returns a copy of every message of locale across namespaces.
func (b *Bundle) LocaleMessages(locale string) map[string]string {
	out := map[string]string{}
	if b == nil {
		return out
	}
	for _, messages := range b.messages[strings.TrimSpace(locale)] {
		for key, value := range messages {
			out[key] = value
		}
	}
	return out
}

// NamespaceMessages returns a copy of one namespace of locale.
func (b *Bundle) NamespaceMessages(locale string, namespace string) map[string]string {
	out := map[string]string{}
	if b == nil {
		return out
	}
	for key, value := range b.messages[strings.TrimSpace(locale)][strings.TrimSpace(namespace)] {
		out[key] = value
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func mustLoadEmbedded() *Bundle {
	b, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := b.Register(); err != nil {
		panic(err)
	}
	return b
}
