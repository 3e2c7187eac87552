package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/lysyi3m/paleo-digest/app/cfg"
)

type sourceArgs struct {
	URL string `positional-arg-name:"url" required:"yes"`
}

type sourcesListCommand struct {
	app *App
}

func (c *sourcesListCommand) storeless() {}

func (c *sourcesListCommand) Execute(args []string) error {
	path := c.app.settings.SourcesFile

	sources, err := cfg.LoadSources(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(c.app.out, "No sources (%s does not exist)\n", path)
			return nil
		}
		return err
	}

	rows := make([][]string, 0, len(sources))
	for i, url := range sources {
		rows = append(rows, []string{itoa(i + 1), url})
	}
	renderTable(c.app.out, []string{"#", "URL"}, rows, []columnAlignment{alignRight, alignLeft})
	fmt.Fprintf(c.app.out, "%d sources in %s\n", len(sources), path)
	return nil
}

type sourcesAddCommand struct {
	Args sourceArgs `positional-args:"yes" required:"yes"`

	app *App
}

func (c *sourcesAddCommand) storeless() {}

func (c *sourcesAddCommand) Execute(args []string) error {
	added, err := cfg.AddSource(c.app.settings.SourcesFile, c.Args.URL)
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("source already listed: %s", c.Args.URL)
	}
	fmt.Fprintf(c.app.out, "Added %s\n", c.Args.URL)
	return nil
}

type sourcesRemoveCommand struct {
	Args sourceArgs `positional-args:"yes" required:"yes"`

	app *App
}

func (c *sourcesRemoveCommand) storeless() {}

func (c *sourcesRemoveCommand) Execute(args []string) error {
	removed, err := cfg.RemoveSource(c.app.settings.SourcesFile, c.Args.URL)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("source not found: %s", c.Args.URL)
	}
	fmt.Fprintf(c.app.out, "Removed %s\n", c.Args.URL)
	return nil
}
