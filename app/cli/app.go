package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jessevdk/go-flags"

	"github.com/lysyi3m/paleo-digest/app/cfg"
	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/feed"
	"github.com/lysyi3m/paleo-digest/app/llm"
	"github.com/lysyi3m/paleo-digest/app/notify"
	"github.com/lysyi3m/paleo-digest/app/tasks"
)

// App holds the state shared by all commands. The store is opened once per
// invocation by the command handler and closed after the command returns.
type App struct {
	loader *cfg.Loader
	out    io.Writer

	cfg      *cfg.Cfg
	settings *cfg.Settings

	db         *database.DB
	migrator   *database.Migrator
	items      *database.ItemRepository
	recipients *database.RecipientRepository
	ledger     *database.DispatchRepository
	runs       *database.RunRepository
}

// storeless marks commands that only read the settings file.
type storeless interface {
	storeless()
}

func NewApp(loader *cfg.Loader, out io.Writer) *App {
	a := &App{loader: loader, out: out}
	a.register()
	loader.Parser.CommandHandler = a.handle
	return a
}

// Run parses args and executes the selected command. Requesting help is not
// an error.
func (a *App) Run(args []string) error {
	if _, err := a.loader.Parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	return nil
}

func (a *App) register() {
	p := a.loader.Parser

	p.AddCommand("run", "Run the full pipeline",
		"Fetch, classify, crawl, translate and send new articles, recording the run.",
		&runCommand{app: a})
	p.AddCommand("fetch", "Fetch feeds and store new articles", "", &stageCommand{app: a, stage: tasks.TaskTypeIngest})
	p.AddCommand("filter", "Classify pending articles", "", &stageCommand{app: a, stage: tasks.TaskTypeClassify})
	p.AddCommand("crawl", "Retrieve full text of relevant articles", "", &stageCommand{app: a, stage: tasks.TaskTypeEnrich})
	p.AddCommand("summarize", "Translate relevant articles", "", &stageCommand{app: a, stage: tasks.TaskTypeTranslate})
	p.AddCommand("send", "Deliver unsent articles on every enabled channel", "", &stageCommand{app: a, stage: tasks.TaskTypeDispatch})
	p.AddCommand("status", "Show store statistics", "", &statusCommand{app: a})

	sources, _ := p.AddCommand("sources", "Manage feed sources", "", &struct{}{})
	sources.AddCommand("list", "List feed sources", "", &sourcesListCommand{app: a})
	sources.AddCommand("add", "Add a feed source", "", &sourcesAddCommand{app: a})
	sources.AddCommand("remove", "Remove a feed source", "", &sourcesRemoveCommand{app: a})

	users, _ := p.AddCommand("users", "Manage recipients", "", &struct{}{})
	users.AddCommand("list", "List recipients", "", &usersListCommand{app: a})
	users.AddCommand("add", "Add a recipient", "", &usersAddCommand{app: a})
	users.AddCommand("remove", "Remove a recipient", "", &usersRemoveCommand{app: a})
	users.AddCommand("keywords", "Show or set a recipient's keyword filter",
		"Without keywords the current filter is shown. * receives everything.",
		&usersKeywordsCommand{app: a})
	users.AddCommand("activate", "Activate a recipient", "", &usersActiveCommand{app: a, active: true})
	users.AddCommand("deactivate", "Deactivate a recipient", "", &usersActiveCommand{app: a, active: false})

	p.AddCommand("serve", "Run the scheduler and HTTP server", "", &serveCommand{app: a})
}

func (a *App) handle(command flags.Commander, args []string) error {
	if command == nil {
		return nil
	}

	c, err := a.loader.Finalize()
	if err != nil {
		return err
	}
	a.cfg = c
	setupLogger(c.Debug)

	settings, err := cfg.LoadSettings(c.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	a.settings = settings

	if _, ok := command.(storeless); !ok {
		if err := a.openStore(context.Background()); err != nil {
			return err
		}
		defer a.closeStore()
	}

	return command.Execute(args)
}

func (a *App) openStore(ctx context.Context) error {
	db, err := database.Open(a.cfg.DBPath)
	if err != nil {
		return err
	}

	migrator := database.NewMigrator(db, a.settings.LegacyChannels)
	if err := migrator.EnsureSchema(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	a.db = db
	a.migrator = migrator
	a.items = database.NewItemRepository(db)
	a.recipients = database.NewRecipientRepository(db, migrator)
	a.ledger = database.NewDispatchRepository(db)
	a.runs = database.NewRunRepository(db)

	if a.cfg.AdminChatID != "" {
		if _, err := a.recipients.SeedAdmin(ctx, a.cfg.AdminChatID, "admin"); err != nil {
			slog.Error("Failed to seed admin recipient", "error", err)
		}
	}

	return nil
}

func (a *App) closeStore() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
	a.db = nil
}

func (a *App) newPipeline() *tasks.Pipeline {
	c, s := a.cfg, a.settings
	client := llm.NewClient(c.AnthropicAPIKey)

	var judge feed.RelevanceJudge
	if s.Filter.LLMFilter.Enabled {
		judge = feed.NewLLMJudge(client, s.Filter.LLMFilter.Model)
	}

	var retriever tasks.BodyRetriever
	if s.Crawler.IsEnabled() {
		retriever = feed.NewRetriever(&http.Client{Timeout: s.Crawler.GetTimeout()}, nil, c.UserAgent, s.Crawler.GetDelay())
	}

	var translator tasks.ItemTranslator
	if c.AnthropicAPIKey != "" {
		translator = feed.NewTranslator(client, s.Summarizer.Model, s.Summarizer.Language)
	}

	var alerter tasks.Alerter
	if c.TelegramBotToken != "" {
		alerter = notify.NewAlerter(notify.NewTelegram(c.TelegramBotToken), a.recipients, c.AdminChatID)
	}

	return tasks.NewPipeline(tasks.PipelineOptions{
		Items:           a.items,
		Recipients:      a.recipients,
		Ledger:          a.ledger,
		Runs:            a.runs,
		SourcesFile:     s.SourcesFile,
		Feeds:           feed.NewParser(nil, c.UserAgent),
		Classifier:      feed.NewClassifier(s.DedicatedFeeds, s.Filter.Keywords, judge),
		Retriever:       retriever,
		MaxRetrievals:   s.Crawler.MaxPerRun,
		Translator:      translator,
		MaxTranslations: s.Summarizer.MaxArticlesPerRun,
		Senders:         notify.NewSenders(s.Channels, c),
		AdminChatID:     c.AdminChatID,
		Alerter:         alerter,
	})
}
