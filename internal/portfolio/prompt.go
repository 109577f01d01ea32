package portfolio

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/system_prompt.tmpl
var systemPromptTemplate string

// GenerateSystemPrompt renders c into the system-role instruction block.
// Same document in, byte-identical prompt out.
func GenerateSystemPrompt(ctx context.Context, c *Context) (string, error) {
	if c == nil {
		return "", errors.New("system prompt render: nil portfolio context")
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(systemPromptTemplate),
	)
	vars := map[string]any{
		"Personal":     c.Personal,
		"Bio":          c.Bio,
		"Experience":   c.Experience,
		"Projects":     c.Projects,
		"Skills":       c.Skills,
		"AvailableFor": c.AvailableFor,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// Prompter renders the system prompt once and hands out the cached text.
type Prompter struct {
	ctx    *Context
	prompt string
}

// NewPrompter renders the prompt for c.
func NewPrompter(ctx context.Context, c *Context) (*Prompter, error) {
	p, err := GenerateSystemPrompt(ctx, c)
	if err != nil {
		return nil, err
	}
	return &Prompter{ctx: c, prompt: p}, nil
}

// SystemPrompt returns the rendered prompt.
func (p *Prompter) SystemPrompt() string {
	return p.prompt
}

// Context returns the document the prompt was rendered from.
func (p *Prompter) Context() *Context {
	return p.ctx
}
