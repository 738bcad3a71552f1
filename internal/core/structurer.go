package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"symptom-chatbot/internal/config"
	"symptom-chatbot/pkg"
)

// historyContextSize is how many previous turns are included in a prompt.
const historyContextSize = 5

const (
	secSummary = iota
	secHomeCare
	secMedicalAttention
	secPossibleCauses
)

// sectionMarkers is matched in order; the first marker found in a line wins
// and opens that section. Markers are stored upper-cased.
var sectionMarkers = []struct {
	section int
	markers []string
}{
	{secSummary, []string{"(A)", "BRIEF SUMMARY", "SUMMARY OF THE SYMPTOMS"}},
	{secHomeCare, []string{"(B)", "HOME CARE", "HOME CARE RECOMMENDATIONS"}},
	{secMedicalAttention, []string{"(C)", "WHEN TO SEEK MEDICAL ATTENTION", "SEEK MEDICAL ATTENTION"}},
	{secPossibleCauses, []string{"(D)", "POSSIBLE CAUSES", "CAUSES"}},
}

func matchSection(line string) int {
	upper := strings.ToUpper(line)
	for _, entry := range sectionMarkers {
		for _, m := range entry.markers {
			if strings.Contains(upper, m) {
				return entry.section
			}
		}
	}
	return -1
}

func sectionField(r *pkg.StructuredResponse, section int) *string {
	switch section {
	case secHomeCare:
		return &r.HomeCare
	case secMedicalAttention:
		return &r.MedicalAttention
	case secPossibleCauses:
		return &r.PossibleCauses
	default:
		return &r.Summary
	}
}

// ParseSections splits free-form model output into the four sections. A line
// containing a marker starts a new section and is kept as its first line;
// lines before the first marker are dropped. When no marker is found the
// whole input becomes the summary. The disclaimer is left empty.
func ParseSections(raw string) pkg.StructuredResponse {
	var out pkg.StructuredResponse

	current := -1
	var buf []string
	flush := func() {
		if current >= 0 {
			*sectionField(&out, current) = strings.TrimSpace(strings.Join(buf, "\n"))
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if section := matchSection(line); section >= 0 {
			flush()
			current = section
			buf = []string{line}
			continue
		}
		if current >= 0 {
			buf = append(buf, line)
		}
	}
	flush()

	if current < 0 {
		out.Summary = raw
	}
	return out
}

// Disclaimer returns the fixed disclaimer for a language code, falling back
// to English.
func Disclaimer(language string) string {
	if d, ok := disclaimers[strings.ToLower(language)]; ok {
		return d
	}
	return disclaimers["english"]
}

// Render flattens a structured response into the text stored as the
// assistant message. ParseSections can split it again.
func Render(r pkg.StructuredResponse) string {
	return fmt.Sprintf("Summary: %s\n\nHome Care: %s\n\nMedical Attention: %s\n\nPossible Causes: %s",
		r.Summary, r.HomeCare, r.MedicalAttention, r.PossibleCauses)
}

// BuildSymptomPrompt embeds the age group, the symptoms and up to the last
// five history entries.
func BuildSymptomPrompt(age, symptoms string, history []pkg.Message) string {
	prompt := fmt.Sprintf(SymptomPrompt, age, symptoms)
	if len(history) == 0 {
		return prompt
	}
	if len(history) > historyContextSize {
		history = history[len(history)-historyContextSize:]
	}

	var b strings.Builder
	b.WriteString(HistoryHeader)
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("\n")
	b.WriteString(prompt)
	return b.String()
}

// BuildTranslationRequest serializes messages as index-tagged blocks and
// returns the user prompt and the system prompt for a translation call.
func BuildTranslationRequest(messages []pkg.Message, targetLanguage string) (prompt, systemPrompt string) {
	var b strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&b, "INDEX:%d ROLE:%s\n%s\n%s\n", i, m.Role, m.Content, TranslationDelimiter)
	}
	return fmt.Sprintf(TranslationPrompt, targetLanguage, b.String()), TranslationSystemPrompt
}

// ErrUnparseableTranslation is returned when a translation reply holds no
// usable JSON array.
var ErrUnparseableTranslation = errors.New("could not parse translation output as JSON")

var jsonArrayPattern = regexp.MustCompile(`(?s)(\[\s*\{.*\}\s*\])`)

type translatedItem struct {
	Index   *translationIndex `json:"index"`
	Role    string            `json:"role"`
	Content string            `json:"content"`
}

// translationIndex accepts 3, 3.0 and "3".
type translationIndex int

func (i *translationIndex) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		if f != math.Trunc(f) {
			return fmt.Errorf("translation index %v is not an integer", f)
		}
		*i = translationIndex(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("translation index: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("translation index: %w", err)
	}
	*i = translationIndex(n)
	return nil
}

// ParseTranslationReply maps a translation reply back onto the original
// contents. Positions the reply does not cover keep their original text; if
// the reply cannot be used at all the originals are returned unchanged.
func ParseTranslationReply(raw string, originals []string) []string {
	out, err := parseTranslationReply(raw, originals)
	if err != nil {
		return append([]string(nil), originals...)
	}
	return out
}

func parseTranslationReply(raw string, originals []string) ([]string, error) {
	var items []translatedItem
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &items); err != nil {
		match := jsonArrayPattern.FindString(raw)
		if match == "" {
			return nil, ErrUnparseableTranslation
		}
		if err := json.Unmarshal([]byte(match), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseableTranslation, err)
		}
	}

	translated := make([]*string, len(originals))
	for _, item := range items {
		if item.Index == nil {
			return nil, fmt.Errorf("%w: item without index", ErrUnparseableTranslation)
		}
		idx := int(*item.Index)
		if idx < 0 || idx >= len(originals) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrUnparseableTranslation, idx)
		}
		content := item.Content
		translated[idx] = &content
	}

	out := make([]string, len(originals))
	for i, t := range translated {
		if t == nil {
			out[i] = originals[i]
			continue
		}
		out[i] = *t
	}
	return out, nil
}

// Structurer adds language display names to the prompt builders.
type Structurer struct {
	names           map[string]string
	defaultLanguage string
}

// NewStructurer returns a Structurer for the configured languages.
func NewStructurer(languages []config.Language, defaultLanguage string) *Structurer {
	names := make(map[string]string, len(languages))
	for _, l := range languages {
		names[l.Code] = l.Name
	}
	return &Structurer{names: names, defaultLanguage: defaultLanguage}
}

func (s *Structurer) effective(language string) string {
	if language == "" {
		return s.defaultLanguage
	}
	return language
}

func (s *Structurer) label(language string) string {
	language = s.effective(language)
	if name, ok := s.names[language]; ok && name != language {
		return fmt.Sprintf("%s (%s)", language, name)
	}
	return language
}

// SystemPrompt returns the medical system prompt, with a reply-language
// instruction for anything other than English.
func (s *Structurer) SystemPrompt(language string) string {
	language = s.effective(language)
	if language == "english" {
		return SystemPrompt
	}
	name := s.names[language]
	if name == "" {
		name = language
	}
	return SystemPrompt + fmt.Sprintf(LanguageInstruction, name)
}

// Disclaimer resolves an empty language to the default before lookup.
func (s *Structurer) Disclaimer(language string) string {
	return Disclaimer(s.effective(language))
}

// TranslationRequest builds a translation request naming the target language
// by code and display name.
func (s *Structurer) TranslationRequest(messages []pkg.Message, language string) (prompt, systemPrompt string) {
	return BuildTranslationRequest(messages, s.label(language))
}
