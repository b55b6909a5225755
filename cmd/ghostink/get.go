package main

import (
	"ghostink/pkg/codec"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "get <id>#<key>",
		Short:   "Download and decrypt a paste",
		Example: `  ghostink get 3f1c2a9e-6b7d-4e2f-9a1b-0c8d7e6f5a4b#<64 hex chars>`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := codec.ParseReference(args[0])
			if err != nil {
				return err
			}
			defer tok.Key.Wipe()

			stop := startSpinner(cmd.ErrOrStderr(), "Fetching", a.verbose)
			blob, err := a.client.Get(cmd.Context(), tok.ID)
			stop()
			if err != nil {
				return errors.Wrap(err, "failed to fetch paste")
			}
			a.log.Debug().Str("paste_id", tok.ID).Int("blob_bytes", len(blob)).Msg("fetched")
			plaintext, err := codec.Open(blob, tok.Key)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(plaintext)
			return err
		},
	}
}
