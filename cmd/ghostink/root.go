package main

import (
	"time"

	"ghostink/cfg"
	"ghostink/pkg/client"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type app struct {
	server  string
	timeout time.Duration
	verbose bool
	log     zerolog.Logger
	client  *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:   "ghostink",
		Short: "End-to-end encrypted pastes",
		Long: `ghostink encrypts text on this machine and uploads only the ciphertext.
The key never leaves the client; it is printed once as part of the reference
needed to read the paste back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.server, "server", "", "server URL (env GHOSTINK_API_URL, default "+cfg.DefaultServerURL+")")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", cfg.DefaultClientTimeout, "HTTP timeout (env GHOSTINK_TIMEOUT)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newGetCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if a.verbose {
		a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	}
	c, err := cfg.LoadClient()
	if err != nil {
		return errors.Wrap(err, "load client config")
	}
	if cmd.Flags().Changed("server") {
		c.ServerURL = a.server
	}
	if cmd.Flags().Changed("timeout") {
		c.Timeout = a.timeout
	}
	if err := c.Validate(); err != nil {
		return err
	}
	a.log.Debug().Str("server", c.ServerURL).Dur("timeout", c.Timeout).Msg("client configured")
	a.client = client.New(c.ServerURL, c.Timeout)
	return nil
}
