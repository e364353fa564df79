package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmcdole/campuschat/pkg/client"
	"github.com/mmcdole/campuschat/pkg/logging"
)

var (
	version        = "dev" // Will be set during build
	addr           string
	reconnectDelay time.Duration
	logLevel       string
	showVersion    bool
)

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

var rootCmd = &cobra.Command{
	Use:           "chat",
	Short:         "Campus chat client",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Campus chat client - interactive terminal client for chatd

Type protocol commands (LOGIN <username> <password>, MESSAGE <user> <text>,
LIST_USERS, HELP, LOGOUT). Administrative commands such as REGISTER and KILL
are refused by this client; use the server console for those.

If the connection fails the client keeps reconnecting until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("Campus chat client %s\n", version)
			return nil
		}

		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if err := logging.Initialize(&logging.Config{Level: level}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := client.New(&client.Config{
			Addr:  addr,
			Retry: client.RetryPolicy{Delay: reconnectDelay},
		}, os.Stdin, os.Stdout)
		return c.Run(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&addr, "addr", "a", "localhost:12345", "server address")
	rootCmd.Flags().DurationVar(&reconnectDelay, "reconnect-delay", client.DefaultReconnectDelay, "pause between reconnection attempts")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "client log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show version information")
}

