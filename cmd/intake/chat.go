package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/adapters/console"
	"github.com/aretw0/intake/pkg/dispatch"
	"github.com/spf13/cobra"
)

const consoleAdmin = "admin"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot in the terminal",
	Long: `Runs the registration conversation over stdin and stdout for a single
local user. Type /start to begin and the cancel keyword to abort.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		logger, err := logging.FromConfig(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		def, err := loadForm(cfg)
		if err != nil {
			return err
		}

		userID, _ := cmd.Flags().GetString("user")
		jsonMode, _ := cmd.Flags().GetBool("json")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		store, err := openStorage(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer store.close()

		var msgOpts []console.MessengerOption
		var sessOpts []console.Option
		if jsonMode {
			msgOpts = append(msgOpts, console.WithJSON())
			sessOpts = append(sessOpts, console.WithJSONInput())
		}
		sessOpts = append(sessOpts, console.WithLogger(logger))

		bot, err := intake.New(console.NewMessenger(cmd.OutOrStdout(), consoleAdmin, msgOpts...), consoleAdmin,
			intake.WithForm(def),
			intake.WithStore(store.store),
			intake.WithLogger(logger),
			intake.WithIdleCancelAck(cfg.IdleCancelAck),
			intake.WithDispatchOptions(dispatch.WithMaxInputSize(cfg.MaxInputSize)),
		)
		if err != nil {
			return err
		}
		defer bot.Close()

		if !jsonMode {
			fmt.Fprintf(cmd.OutOrStdout(), "intake %s (%d steps). Type /start to begin.\n", strings.TrimSpace(intake.Version), def.StepCount())
		}
		return console.NewSession(userID, cmd.InOrStdin(), bot, sessOpts...).Run(ctx)
	},
}

var _ console.Dispatcher = (*intake.Bot)(nil)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("user", "local", "user id for the console session")
	chatCmd.Flags().Bool("json", false, "read and write JSON lines instead of text")
}
