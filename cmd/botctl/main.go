package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/user/schedulebot/internal/config"
	"github.com/user/schedulebot/internal/storage"
	"github.com/user/schedulebot/internal/telegram"
	"github.com/user/schedulebot/pkg/logger"
)

var version = "dev"

var errShowUsage = errors.New("invalid usage")

func main() {
	global := flag.NewFlagSet("botctl", flag.ContinueOnError)
	configPath := global.String("config", "", "Path to configuration file")
	global.Usage = printUsage
	if err := global.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "version" {
		fmt.Printf("botctl %s\n", version)
		return
	}
	if args[0] == "help" {
		printUsage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	err = run(context.Background(), storage.NewBotStore(db), cfg, args, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errShowUsage) {
			printUsage()
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, bots *storage.BotStore, cfg *config.Config, args []string, out io.Writer) error {
	command, rest := args[0], args[1:]

	switch command {
	case "create":
		return runCreate(ctx, bots, rest, out)
	case "list":
		return runList(ctx, bots, out)
	case "set-webhook":
		return runSetWebhook(ctx, bots, cfg, rest, out)
	case "rotate-secret":
		return runRotateSecret(ctx, bots, rest, out)
	default:
		return fmt.Errorf("%w: unknown command %s", errShowUsage, command)
	}
}

func runCreate(ctx context.Context, bots *storage.BotStore, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "Bot name")
	token := fs.String("token", "", "Telegram bot token")
	webhookURL := fs.String("webhook-url", "", "Public base URL of this service")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *token == "" {
		return fmt.Errorf("create requires -name and -token")
	}

	bot := &storage.Bot{Name: *name, Token: *token, WebhookURL: *webhookURL}
	if err := bots.Create(ctx, bot); err != nil {
		return err
	}

	fmt.Fprintf(out, "Created bot %s (%s)\n", bot.Name, bot.ID)
	if url := bot.FullWebhookURL(); url != "" {
		fmt.Fprintf(out, "Webhook URL: %s\n", url)
	}
	return nil
}

func runList(ctx context.Context, bots *storage.BotStore, out io.Writer) error {
	list, err := bots.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No bots configured")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTOKEN\tWEBHOOK URL")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Name, b.ShortToken(), b.WebhookURL)
	}
	return tw.Flush()
}

func parseID(name string, args []string) (uuid.UUID, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	rawID := fs.String("id", "", "Bot id")
	if err := fs.Parse(args); err != nil {
		return uuid.Nil, err
	}
	if *rawID == "" {
		return uuid.Nil, fmt.Errorf("%s requires -id", name)
	}
	id, err := uuid.Parse(*rawID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid bot id: %w", err)
	}
	return id, nil
}

func runSetWebhook(ctx context.Context, bots *storage.BotStore, cfg *config.Config, args []string, out io.Writer) error {
	id, err := parseID("set-webhook", args)
	if err != nil {
		return err
	}

	bot, err := bots.Get(ctx, id)
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(bot.Token)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = cfg.Telegram.Debug

	if err := telegram.SetWebhook(api, bot); err != nil {
		return err
	}

	fmt.Fprintf(out, "Webhook set for @%s\n", api.Self.UserName)
	return nil
}

func runRotateSecret(ctx context.Context, bots *storage.BotStore, args []string, out io.Writer) error {
	id, err := parseID("rotate-secret", args)
	if err != nil {
		return err
	}

	bot, err := bots.RotateSecret(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Secret rotated for %s\n", bot.Name)
	if url := bot.FullWebhookURL(); url != "" {
		fmt.Fprintf(out, "New webhook URL: %s\nRun set-webhook to register it with Telegram.\n", url)
	}
	return nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: botctl [-config path] <command> [flags]

Commands:
  create -name N -token T [-webhook-url U]   Create a bot
  list                                       List bots
  set-webhook -id ID                         Register the bot's webhook with Telegram
  rotate-secret -id ID                       Generate a new webhook secret
  version                                    Print version
`)
}
