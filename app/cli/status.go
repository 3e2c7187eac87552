package cli

import (
	"context"
	"fmt"

	"github.com/lysyi3m/paleo-digest/app/database"
)

const statusRunLimit = 5

type statusCommand struct {
	Verbose bool `short:"v" long:"verbose" description:"Show per-source counts, recent runs and recipients"`

	app *App
}

func (c *statusCommand) Execute(args []string) error {
	return printStats(context.Background(), c.app, c.Verbose)
}

func printStats(ctx context.Context, a *App, verbose bool) error {
	out := a.out

	stats, err := a.items.GetStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Articles: %d total, %d relevant, %d translated\n", stats.Total, stats.Relevant, stats.Translated)

	limit := 1
	if verbose {
		limit = statusRunLimit
	}
	runs, err := a.runs.GetRecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "Last run: never")
	} else {
		last := runs[0]
		fmt.Fprintf(out, "Last run: #%d %s, %s\n", last.ID, statusLabel(last.Status), ago(last.StartedAt))
	}

	if !verbose {
		return nil
	}

	sources, err := a.items.GetSourceStats(ctx)
	if err != nil {
		return err
	}
	if len(sources) > 0 {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(sources))
		for _, s := range sources {
			rows = append(rows, []string{s.Source, itoa(s.Total), itoa(s.Relevant), itoa(s.Translated)})
		}
		renderTable(out, []string{"Source", "Total", "Relevant", "Translated"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight})
	}

	if len(runs) > 0 {
		fmt.Fprintln(out)
		printRuns(a, runs)
	}

	recipients, err := a.recipients.GetAll(ctx)
	if err != nil {
		return err
	}
	active := 0
	for _, r := range recipients {
		if r.IsActive {
			active++
		}
	}
	fmt.Fprintf(out, "\nRecipients: %d total, %d active\n", len(recipients), active)

	return nil
}

func printRuns(a *App, runs []database.PipelineRun) {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		c := run.Counters
		rows = append(rows, []string{
			itoa(int(run.ID)), ago(run.StartedAt), statusLabel(run.Status),
			itoa(c.Fetched), itoa(c.NewItems), itoa(c.Relevant), itoa(c.Translated), itoa(c.Sent),
		})
	}
	renderTable(a.out, []string{"Run", "Started", "Status", "Fetched", "New", "Relevant", "Translated", "Sent"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight})

	for _, run := range runs {
		for _, e := range run.Errors {
			fmt.Fprintf(a.out, "  #%d %s\n", run.ID, e)
		}
	}
}
