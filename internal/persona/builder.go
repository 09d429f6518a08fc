package persona

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/satriahrh/temantidur/server/domain/entities"
	"github.com/satriahrh/temantidur/server/domain/repositories"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Vars are the values a prompt may interpolate
type Vars struct {
	Date         string
	Emotion      string
	Confidence   float64
	Conversation string
}

// Features each prompt section must cover in every language
var (
	systemFeatures = []entities.Feature{
		entities.FeatureChat,
		entities.FeatureVoice,
		entities.FeatureRecap,
		entities.FeatureEmotionRecommendation,
		entities.FeatureEmotionMessage,
	}
	introFeatures = []entities.Feature{
		entities.FeatureChat,
		entities.FeatureVoice,
	}
	userFeatures = []entities.Feature{
		entities.FeatureEmotionRecommendation,
		entities.FeatureEmotionMessage,
		entities.FeatureRecap,
	}
)

type promptSet map[entities.Feature]map[entities.Language]*template.Template

type promptFile struct {
	AssistantName map[entities.Language]string                       `yaml:"assistant_name"`
	System        map[entities.Feature]map[entities.Language]string `yaml:"system"`
	Intro         map[entities.Feature]map[entities.Language]string `yaml:"intro"`
	User          map[entities.Feature]map[entities.Language]string `yaml:"user"`
}

// Builder renders the companion persona prompts
type Builder struct {
	names  map[entities.Language]string
	system promptSet
	intro  promptSet
	user   promptSet
}

// NewBuilder loads the embedded prompts
func NewBuilder() (*Builder, error) {
	return Parse(defaultPrompts)
}

// MustNewBuilder is NewBuilder that panics on a broken prompt file
func MustNewBuilder() *Builder {
	b, err := NewBuilder()
	if err != nil {
		panic(err)
	}
	return b
}

// Parse builds a Builder from YAML. Every required feature and language
// pair must be present and render.
func Parse(data []byte) (*Builder, error) {
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	b := &Builder{names: file.AssistantName}
	for _, lang := range entities.Languages {
		if strings.TrimSpace(b.names[lang]) == "" {
			return nil, fmt.Errorf("prompts are missing assistant_name for %s", lang)
		}
	}

	var err error
	if b.system, err = compile("system", file.System, systemFeatures); err != nil {
		return nil, err
	}
	if b.intro, err = compile("intro", file.Intro, introFeatures); err != nil {
		return nil, err
	}
	if b.user, err = compile("user", file.User, userFeatures); err != nil {
		return nil, err
	}
	return b, nil
}

func compile(section string, raw map[entities.Feature]map[entities.Language]string, required []entities.Feature) (promptSet, error) {
	set := make(promptSet)
	sample := Vars{Date: "11 Juni 2025", Emotion: "sad", Confidence: 0.5, Conversation: "User: hai"}

	for _, feature := range required {
		set[feature] = make(map[entities.Language]*template.Template)
		for _, lang := range entities.Languages {
			text := strings.TrimSpace(raw[feature][lang])
			if text == "" {
				return nil, fmt.Errorf("prompts are missing %s/%s/%s", section, feature, lang)
			}
			name := fmt.Sprintf("%s/%s/%s", section, feature, lang)
			tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
			if err != nil {
				return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
			}
			if _, err := render(tmpl, sample); err != nil {
				return nil, fmt.Errorf("prompt %s does not render: %w", name, err)
			}
			set[feature][lang] = tmpl
		}
	}
	return set, nil
}

// SystemPrompt returns the persona system turn for a feature
func (b *Builder) SystemPrompt(feature entities.Feature, lang entities.Language, vars Vars) repositories.ChatMessage {
	return repositories.ChatMessage{
		Role:    repositories.SystemRole,
		Content: b.lookup(b.system, feature, lang, vars),
	}
}

// IntroTurn returns the canned greeting that opens a new session
func (b *Builder) IntroTurn(feature entities.Feature, lang entities.Language) repositories.ChatMessage {
	return repositories.ChatMessage{
		Role:    repositories.AssistantRole,
		Content: b.lookup(b.intro, feature, lang, Vars{}),
	}
}

// UserPrompt returns the synthetic user turn of single shot features
func (b *Builder) UserPrompt(feature entities.Feature, lang entities.Language, vars Vars) repositories.ChatMessage {
	return repositories.ChatMessage{
		Role:    repositories.UserRole,
		Content: b.lookup(b.user, feature, lang, vars),
	}
}

// AssistantName is the persona's name in the given language
func (b *Builder) AssistantName(lang entities.Language) string {
	if name, ok := b.names[lang]; ok {
		return name
	}
	return b.names[entities.LanguageIndonesian]
}

// Transcript renders turns as "Speaker: content" blocks separated by a
// blank line, naming the assistant after the persona.
func (b *Builder) Transcript(turns []repositories.ChatMessage, lang entities.Language) string {
	var sb strings.Builder
	for _, turn := range turns {
		speaker := "User"
		if turn.Role != repositories.UserRole {
			speaker = b.AssistantName(lang)
		}
		sb.WriteString(speaker)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func (b *Builder) lookup(set promptSet, feature entities.Feature, lang entities.Language, vars Vars) string {
	byLanguage, ok := set[feature]
	if !ok {
		byLanguage = set[entities.FeatureChat]
	}
	tmpl, ok := byLanguage[lang]
	if !ok {
		tmpl = byLanguage[entities.LanguageIndonesian]
	}
	if tmpl == nil {
		return ""
	}

	text, err := render(tmpl, vars)
	if err != nil {
		return tmpl.Root.String()
	}
	return text
}

func render(tmpl *template.Template, vars Vars) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
