package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/llm"
)

const translatorSystemPrompt = `You are a science journalist specializing in paleontology. You summarize English science news accurately and naturally in %s.`

const translatorPrompt = `Summarize the following English article in %s.

Title: %s
Summary: %s
Source: %s

Answer in exactly this format:
Title: (the title in %s, at most 30 characters)
Summary: (the key findings in 2-3 sentences, including why this research or discovery matters)`

// Translator produces a translated title and summary for an item.
type Translator struct {
	client   llm.Completer
	model    string
	language string
}

func NewTranslator(client llm.Completer, model, language string) *Translator {
	return &Translator{client: client, model: model, language: language}
}

func (t *Translator) Translate(ctx context.Context, item database.Item) (Translation, error) {
	content := item.Excerpt
	if item.Body != nil && *item.Body != "" {
		content = *item.Body
	}

	text, err := t.client.Complete(ctx, llm.Request{
		Model:     t.model,
		System:    fmt.Sprintf(translatorSystemPrompt, t.language),
		Prompt:    fmt.Sprintf(translatorPrompt, t.language, item.Title, content, item.SourceName, t.language),
		MaxTokens: 512,
	})
	if err != nil {
		return Translation{}, fmt.Errorf("failed to translate item %d: %w", item.ID, err)
	}

	translation, err := parseTranslation(text)
	if err != nil {
		return Translation{}, fmt.Errorf("failed to translate item %d: %w", item.ID, err)
	}
	if translation.Title == "" {
		translation.Title = item.Title
	}
	return translation, nil
}

// parseTranslation reads the "Title:" and "Summary:" lines. The summary runs
// to the end of the text. Without either label the whole text is the summary
// and the title is left empty. A labelled reply must carry both fields.
func parseTranslation(text string) (Translation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Translation{}, fmt.Errorf("empty translation")
	}

	var tr Translation
	labelled := false

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !labelled && hasLabel(trimmed, "title:") {
			labelled = true
			tr.Title = strings.TrimSpace(trimmed[len("title:"):])
			continue
		}
		if hasLabel(trimmed, "summary:") {
			labelled = true
			rest := append([]string{trimmed[len("summary:"):]}, lines[i+1:]...)
			tr.Summary = strings.TrimSpace(strings.Join(rest, "\n"))
			break
		}
	}

	if !labelled {
		return Translation{Summary: text}, nil
	}
	if tr.Title == "" || tr.Summary == "" {
		return Translation{}, fmt.Errorf("incomplete translation: title and summary are both required")
	}
	return tr, nil
}

func hasLabel(line, label string) bool {
	return len(line) >= len(label) && strings.EqualFold(line[:len(label)], label)
}
