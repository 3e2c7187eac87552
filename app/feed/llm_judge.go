package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/llm"
)

const judgePrompt = `Decide whether the following article is directly about paleontology.
Paleontology covers fossils, extinct organisms, prehistoric life of past geological eras,
paleoanthropology and evolutionary paleobiology.

Title: %s
Summary: %s

Answer only "yes" or "no".`

// LLMJudge asks a language model whether an item is on topic.
type LLMJudge struct {
	client llm.Completer
	model  string
}

var _ RelevanceJudge = (*LLMJudge)(nil)

func NewLLMJudge(client llm.Completer, model string) *LLMJudge {
	return &LLMJudge{client: client, model: model}
}

func (j *LLMJudge) Judge(ctx context.Context, item database.Item) (bool, error) {
	answer, err := j.client.Complete(ctx, llm.Request{
		Model:     j.model,
		Prompt:    fmt.Sprintf(judgePrompt, item.Title, item.Excerpt),
		MaxTokens: 8,
	})
	if err != nil {
		return false, fmt.Errorf("relevance judge: %w", err)
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "yes"), nil
}
