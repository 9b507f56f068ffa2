package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliseohh/welcomebot/internal/bot"
	"github.com/eliseohh/welcomebot/internal/config"
	"github.com/eliseohh/welcomebot/internal/index"
	"github.com/eliseohh/welcomebot/internal/intake"
	"github.com/eliseohh/welcomebot/internal/logging"
	"github.com/eliseohh/welcomebot/internal/profile"
	"github.com/eliseohh/welcomebot/internal/questionnaire"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var envFiles []string

	root := &cobra.Command{
		Use:   "welcomebot",
		Short: "Telegram bot that greets new members and keeps their questionnaire answers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			for _, err := range config.LoadEnvFiles(envFiles...) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), v)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	flags := root.Flags()
	flags.String("store", config.StoreMemory, "profile store: memory or sqlite (in-memory SQLite)")
	flags.Duration("poll-timeout", 0, "long polling timeout")
	flags.Int("roster-limit", 0, "max characters per roster message")
	flags.BoolP("verbose", "v", false, "debug logging")
	// Unchanged flags rank below both the environment and the viper
	// defaults, so their zero values never mask either.
	_ = v.BindPFlag(config.KeyStore, flags.Lookup("store"))
	_ = v.BindPFlag(config.KeyPollTimeout, flags.Lookup("poll-timeout"))
	_ = v.BindPFlag(config.KeyRosterLimit, flags.Lookup("roster-limit"))
	_ = v.BindPFlag(config.KeyDebug, flags.Lookup("verbose"))

	root.AddCommand(newParseCmd())
	return root
}

func serve(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		logger.Error("store init failed", zap.Error(err))
		return err
	}
	defer closeStore()

	service := intake.NewService(store, cfg.RosterLimit)
	b, err := bot.New(bot.Config{Token: cfg.Token, PollTimeout: cfg.PollTimeout}, service, logger)
	if err != nil {
		logger.Error("bot init failed", zap.Error(err))
		return fmt.Errorf("bot init failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Start()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		b.Stop()
		return nil
	})
	return g.Wait()
}

func openStore(kind string) (profile.Store, func(), error) {
	switch kind {
	case config.StoreSQLite:
		db, err := index.NewMemoryDB()
		if err != nil {
			return nil, nil, err
		}
		return index.NewProfileStore(db), func() { db.Close() }, nil
	default:
		return profile.NewMemStore(), func() {}, nil
	}
}

func newParseCmd() *cobra.Command {
	var fields bool
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Read a questionnaire reply from stdin and print what the bot would store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.InOrStdin(), cmd.OutOrStdout(), fields)
		},
	}
	cmd.Flags().BoolVar(&fields, "fields", false, "parse /add and /edit style \"index: value\" lines instead")
	return cmd
}

func runParse(in io.Reader, out io.Writer, fields bool) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var answers map[int]string
	if fields {
		answers = questionnaire.ExtractFieldUpdates(string(raw))
	} else {
		answers = questionnaire.ExtractAnswers(string(raw))
	}
	if len(answers) == 0 {
		return fmt.Errorf("no answers found")
	}

	keys := make([]int, 0, len(answers))
	for q := range answers {
		keys = append(keys, q)
	}
	slices.Sort(keys)
	for _, q := range keys {
		fmt.Fprintf(out, "%d\t%s\t%q\n", q, questionnaire.Label(q), answers[q])
	}

	p := profile.New(0)
	p.Apply(answers)
	fmt.Fprintf(out, "\n%s\n", questionnaire.FormatProfile(p))
	return nil
}
