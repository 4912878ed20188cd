// Package messages renders user-facing text from per-language catalogs.
//
// Catalogs are YAML documents with a command_prefix and a messages map.
// The English catalog is always loaded first so a partial translation falls
// back key by key. Text uses & color codes which are rendered as §.
package messages

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"

	"github.com/okian/speedhud/pkg/logger"
)

// DefaultLanguage is the catalog every other language falls back to.
const DefaultLanguage = "en"

const (
	defaultPrefix = "SpeedHUD"
	prefixKey     = "command_prefix"
	messagesKey   = "messages"
)

//go:embed lang/*.yml
var langFS embed.FS

// ErrCatalog is returned when a catalog file exists but cannot be parsed.
var ErrCatalog = errors.New("messages: invalid catalog")

// Args are placeholder values substituted for %name% in a message.
type Args map[string]string

// Catalog is an immutable set of rendered-on-demand messages.
type Catalog struct {
	language string
	prefix   string
	messages map[string]string
}

// bytesProvider feeds an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytesProvider does not support Read()")
}

// baseLanguage reduces a BCP 47 tag such as "ru-RU" to its base language.
// Unparseable input is only trimmed and lower-cased.
func baseLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	base, _ := tag.Base()
	return base.String()
}

func fileName(lang string) string {
	return "messages_" + lang + ".yml"
}

// Load builds the catalog for lang. dir, when set, holds messages_<lang>.yml
// files that override the embedded ones. An unknown language logs a warning
// and yields the English catalog.
func Load(ctx context.Context, lang, dir string) (*Catalog, error) {
	lang = baseLanguage(lang)
	if lang == "" {
		lang = DefaultLanguage
	}

	k := koanf.New(".")
	if err := loadEmbedded(k, DefaultLanguage); err != nil {
		return nil, err
	}

	found := lang == DefaultLanguage
	if !found {
		err := loadEmbedded(k, lang)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	if dir != "" {
		for _, l := range []string{DefaultLanguage, lang} {
			ok, err := loadFile(k, filepath.Join(dir, fileName(l)))
			if err != nil {
				return nil, err
			}
			if ok && l == lang {
				found = true
			}
		}
	}

	effective := lang
	if !found {
		logger.Get().Warn(ctx, "language file not found; using default language",
			logger.String("language", lang),
			logger.String("fallback", DefaultLanguage),
		)
		effective = DefaultLanguage
	}

	prefix := k.String(prefixKey)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Catalog{
		language: effective,
		prefix:   prefix,
		messages: k.StringMap(messagesKey),
	}, nil
}

func loadEmbedded(k *koanf.Koanf, lang string) error {
	b, err := langFS.ReadFile("lang/" + fileName(lang))
	if err != nil {
		return fmt.Errorf("embedded %s: %w", fileName(lang), os.ErrNotExist)
	}
	if err := k.Load(bytesProvider(b), yaml.Parser()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCatalog, fileName(lang), err)
	}
	return nil
}

// loadFile merges path into k. A missing file is not an error.
func loadFile(k *koanf.Koanf, path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s: %w", ErrCatalog, path, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrCatalog, path, err)
	}
	return true, nil
}

// Language returns the effective catalog language.
func (c *Catalog) Language() string { return c.language }

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[key]
	return ok
}

// Format renders key with %prefix% and args substituted and color codes
// translated. A missing key renders as the key itself.
func (c *Catalog) Format(key string, args Args) string {
	msg, ok := c.messages[key]
	if !ok {
		msg = key
	}
	msg = strings.ReplaceAll(msg, "%prefix%", c.prefix)

	if len(args) > 0 {
		names := make([]string, 0, len(args))
		for name := range args {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]string, 0, 2*len(names))
		for _, name := range names {
			pairs = append(pairs, "%"+name+"%", args[name])
		}
		msg = strings.NewReplacer(pairs...).Replace(msg)
	}
	return TranslateColors(msg)
}

// Label renders a unit display key.
func (c *Catalog) Label(key string) string {
	return c.Format(key, nil)
}

const colorCodes = "0123456789AaBbCcDdEeFfKkLlMmNnOoRrXx"

// TranslateColors rewrites &<code> sequences to §<code>. An & not followed
// by a color code is left alone.
func TranslateColors(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && i+1 < len(s) && strings.IndexByte(colorCodes, s[i+1]) >= 0 {
			b.WriteString("§")
			b.WriteByte(lower(s[i+1]))
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
