package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/lysyi3m/paleo-digest/app/database"
)

type chatArgs struct {
	ChatID string `positional-arg-name:"chat_id" required:"yes"`
}

// lookup resolves a chat id to a registered recipient.
func (a *App) lookup(ctx context.Context, chatID string) (*database.Recipient, error) {
	recipient, err := a.recipients.GetByExternalID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: %s", database.ErrRecipientNotFound, chatID)
	}
	return recipient, nil
}

func describeFilter(keywords []string) string {
	switch {
	case keywords == nil:
		return "all"
	case len(keywords) == 0:
		return "none"
	default:
		return strings.Join(keywords, ", ")
	}
}

type usersListCommand struct {
	app *App
}

func (c *usersListCommand) Execute(args []string) error {
	recipients, err := c.app.recipients.GetAll(context.Background())
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(recipients))
	for _, r := range recipients {
		active, admin := "no", ""
		if r.IsActive {
			active = "yes"
		}
		if r.IsAdmin {
			admin = "admin"
		}
		rows = append(rows, []string{
			r.ExternalID, r.DisplayName, active, admin, describeFilter(r.KeywordFilter), ago(r.CreatedAt),
		})
	}
	renderTable(c.app.out, []string{"Chat ID", "Name", "Active", "Role", "Keywords", "Joined"}, rows, nil)
	return nil
}

type usersAddCommand struct {
	Name  string   `long:"name" description:"Display name"`
	Admin bool     `long:"admin" description:"Receive pipeline error alerts"`
	Args  chatArgs `positional-args:"yes" required:"yes"`

	app *App
}

func (c *usersAddCommand) Execute(args []string) error {
	id, err := c.app.recipients.Add(context.Background(), c.Args.ChatID, c.Name, c.Admin)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.app.out, "Added recipient %s (id %d)\n", c.Args.ChatID, id)
	return nil
}

type usersRemoveCommand struct {
	Args chatArgs `positional-args:"yes" required:"yes"`

	app *App
}

func (c *usersRemoveCommand) Execute(args []string) error {
	ctx := context.Background()
	recipient, err := c.app.lookup(ctx, c.Args.ChatID)
	if err != nil {
		return err
	}
	if err := c.app.recipients.Remove(ctx, recipient.ID); err != nil {
		return err
	}
	fmt.Fprintf(c.app.out, "Removed recipient %s\n", c.Args.ChatID)
	return nil
}

type usersActiveCommand struct {
	Args chatArgs `positional-args:"yes" required:"yes"`

	app    *App
	active bool
}

func (c *usersActiveCommand) Execute(args []string) error {
	ctx := context.Background()
	recipient, err := c.app.lookup(ctx, c.Args.ChatID)
	if err != nil {
		return err
	}
	if err := c.app.recipients.SetActive(ctx, recipient.ID, c.active); err != nil {
		return err
	}

	state := "deactivated"
	if c.active {
		state = "activated"
	}
	fmt.Fprintf(c.app.out, "Recipient %s %s\n", c.Args.ChatID, state)
	return nil
}

type usersKeywordsCommand struct {
	Args struct {
		ChatID   string   `positional-arg-name:"chat_id" required:"yes"`
		Keywords []string `positional-arg-name:"keyword"`
	} `positional-args:"yes"`

	app *App
}

func (c *usersKeywordsCommand) Execute(args []string) error {
	ctx := context.Background()
	recipient, err := c.app.lookup(ctx, c.Args.ChatID)
	if err != nil {
		return err
	}

	keywords := c.Args.Keywords
	if len(keywords) == 0 {
		fmt.Fprintf(c.app.out, "Keywords for %s: %s\n", c.Args.ChatID, describeFilter(recipient.KeywordFilter))
		return nil
	}

	if len(keywords) == 1 && keywords[0] == "*" {
		keywords = nil
	}
	if err := c.app.recipients.SetKeywordFilter(ctx, recipient.ID, keywords); err != nil {
		return err
	}

	updated, err := c.app.lookup(ctx, c.Args.ChatID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.app.out, "Keywords for %s: %s\n", c.Args.ChatID, describeFilter(updated.KeywordFilter))
	return nil
}
