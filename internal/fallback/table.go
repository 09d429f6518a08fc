package fallback

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/temantidur/server/domain/entities"
)

// Notice keys that are not failure categories
const (
	NoticeReassurance      = "reassurance"
	NoticeInvalidFileType  = "invalid_file_type"
	NoticeFileTooLarge     = "file_too_large"
	NoticeEmptyFile        = "empty_file"
	NoticeNoMessages       = "no_messages"
	NoticeUnsupportedAudio = "unsupported_audio"
)

// requiredNotices must be present in every language for the table to load
var requiredNotices = map[entities.Feature][]string{
	entities.FeatureEmotion: {NoticeReassurance, NoticeInvalidFileType, NoticeFileTooLarge, NoticeEmptyFile},
	entities.FeatureVoice:   {NoticeUnsupportedAudio},
	entities.FeatureRecap:   {NoticeNoMessages},
}

//go:embed fallbacks.yaml
var defaultTable []byte

// Vars are the values a message may interpolate
type Vars struct {
	Emotion    string
	Confidence float64
	Detail     string
}

// ConfidencePercent is the confidence on a 0-100 scale
func (v Vars) ConfidencePercent() float64 {
	return v.Confidence * 100
}

type messages map[entities.Language]map[string]*template.Template

// Table holds every canned message, keyed by feature, language and
// failure category or notice key. It is read-only once loaded.
type Table struct {
	categories map[entities.Feature]messages
	notices    map[entities.Feature]messages
}

// document mirrors fallbacks.yaml: feature -> language -> key -> text,
// with an optional "notices" entry in place of a language.
type document map[string]map[string]yaml.Node

// Load parses the embedded message table
func Load() (*Table, error) {
	return Parse(defaultTable)
}

// MustLoad is Load for package level initialisation in tests and tools
func MustLoad() *Table {
	table, err := Load()
	if err != nil {
		panic(err)
	}
	return table
}

// Parse builds a table from YAML and checks that it is complete
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fallback table: %w", err)
	}

	table := &Table{
		categories: make(map[entities.Feature]messages),
		notices:    make(map[entities.Feature]messages),
	}

	for featureName, sections := range doc {
		feature := entities.Feature(featureName)
		for sectionName, node := range sections {
			if sectionName == "notices" {
				var byLanguage map[string]map[string]string
				if err := node.Decode(&byLanguage); err != nil {
					return nil, fmt.Errorf("failed to decode %s notices: %w", feature, err)
				}
				parsed, err := compile(feature, byLanguage)
				if err != nil {
					return nil, err
				}
				table.notices[feature] = parsed
				continue
			}

			var entries map[string]string
			if err := node.Decode(&entries); err != nil {
				return nil, fmt.Errorf("failed to decode %s/%s: %w", feature, sectionName, err)
			}
			parsed, err := compile(feature, map[string]map[string]string{sectionName: entries})
			if err != nil {
				return nil, err
			}
			if table.categories[feature] == nil {
				table.categories[feature] = make(messages)
			}
			for lang, tmpls := range parsed {
				table.categories[feature][lang] = tmpls
			}
		}
	}

	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func compile(feature entities.Feature, byLanguage map[string]map[string]string) (messages, error) {
	out := make(messages)
	for langCode, entries := range byLanguage {
		lang := entities.Language(langCode)
		out[lang] = make(map[string]*template.Template)
		for key, text := range entries {
			name := fmt.Sprintf("%s/%s/%s", feature, lang, key)
			tmpl, err := template.New(name).Option("missingkey=error").Parse(strings.TrimSpace(text))
			if err != nil {
				return nil, fmt.Errorf("failed to parse fallback %s: %w", name, err)
			}
			out[lang][key] = tmpl
		}
	}
	return out, nil
}

func (t *Table) validate() error {
	sample := Vars{Emotion: "sad", Confidence: 0.5, Detail: "detail."}

	check := func(kind string, feature entities.Feature, lang entities.Language, key string, set map[entities.Feature]messages) error {
		tmpl, ok := set[feature][lang][key]
		if !ok {
			return fmt.Errorf("fallback table is missing %s %s/%s/%s", kind, feature, lang, key)
		}
		text, err := execute(tmpl, sample)
		if err != nil {
			return fmt.Errorf("fallback %s/%s/%s does not render: %w", feature, lang, key, err)
		}
		if text == "" {
			return fmt.Errorf("fallback %s/%s/%s is empty", feature, lang, key)
		}
		return nil
	}

	for _, feature := range entities.Features {
		for _, lang := range entities.Languages {
			for _, category := range entities.FailureCategories {
				if err := check("category", feature, lang, string(category), t.categories); err != nil {
					return err
				}
			}
		}
	}
	for feature, keys := range requiredNotices {
		for _, lang := range entities.Languages {
			for _, key := range keys {
				if err := check("notice", feature, lang, key, t.notices); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Lookup returns the canned message for a failed feature. Unknown
// categories resolve to unexpected and unknown languages to Indonesian,
// so a loaded table never returns an empty string.
func (t *Table) Lookup(feature entities.Feature, category entities.FailureCategory, lang entities.Language, vars Vars) string {
	byLanguage, ok := t.categories[feature]
	if !ok {
		byLanguage = t.categories[entities.FeatureChat]
	}
	entries, ok := byLanguage[lang]
	if !ok {
		entries = byLanguage[entities.LanguageIndonesian]
	}
	tmpl, ok := entries[string(category)]
	if !ok {
		tmpl = entries[string(entities.FailureUnexpected)]
	}

	text, err := execute(tmpl, vars)
	if err != nil {
		return tmpl.Root.String()
	}
	return text
}

// Notice returns a non-category message such as a validation hint.
// It returns an empty string when the key is unknown.
func (t *Table) Notice(feature entities.Feature, key string, lang entities.Language, vars Vars) string {
	entries, ok := t.notices[feature][lang]
	if !ok {
		entries = t.notices[feature][entities.LanguageIndonesian]
	}
	tmpl, ok := entries[key]
	if !ok {
		return ""
	}
	text, err := execute(tmpl, vars)
	if err != nil {
		return tmpl.Root.String()
	}
	return text
}

func execute(tmpl *template.Template, vars Vars) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}
