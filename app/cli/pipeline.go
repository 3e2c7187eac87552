package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lysyi3m/paleo-digest/app/tasks"
)

type runCommand struct {
	app *App
}

func (c *runCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := c.app.newPipeline().Run(ctx)
	if err != nil {
		return err
	}

	out := c.app.out
	fmt.Fprintf(out, "Run #%d %s\n", run.ID, statusLabel(run.Status))
	printCounters(out, run.Counters)
	for _, e := range run.Errors {
		fmt.Fprintf(out, "  • %s\n", e)
	}

	return printStats(ctx, c.app, false)
}

// stageCommand runs a single stage outside of a recorded run.
type stageCommand struct {
	app   *App
	stage tasks.TaskType
}

func (c *stageCommand) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	counters, err := c.app.newPipeline().RunStage(ctx, c.stage)
	if err != nil {
		return err
	}

	printCounters(c.app.out, counters)
	return nil
}
