package main

import (
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"ghostink/pkg/codec"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newCreateCmd(a *app) *cobra.Command {
	var expires expiresFlag
	cmd := &cobra.Command{
		Use:   "create [file|-]",
		Short: "Encrypt and upload a file or stdin",
		Example: `  ghostink create notes.txt --expires 2d
  echo "hello" | ghostink create`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			content, err := readInput(cmd.InOrStdin(), src)
			if err != nil {
				return err
			}
			blob, key, err := codec.Seal(content)
			if err != nil {
				return errors.Wrap(err, "encrypt")
			}
			defer key.Wipe()
			a.log.Debug().Int("plaintext_bytes", len(content)).Int("blob_bytes", len(blob)).Msg("sealed")

			stop := startSpinner(cmd.ErrOrStderr(), "Uploading", a.verbose)
			id, err := a.client.Create(cmd.Context(), blob, expires.at(time.Now()))
			stop()
			if err != nil {
				return errors.Wrap(err, "failed to create paste")
			}
			a.log.Debug().Str("paste_id", id).Msg("paste created")
			fmt.Fprintf(cmd.OutOrStdout(), "ghostink get %s\n", codec.FormatReference(id, key))
			return nil
		},
	}
	cmd.Flags().Var(&expires, "expires", "lifetime of the paste, e.g. 30m, 1h, 2d, 1w (server default 1d)")
	return cmd
}

func readInput(stdin io.Reader, src string) ([]byte, error) {
	var (
		content []byte
		err     error
	)
	if src == "-" {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", src)
	}
	if !utf8.Valid(content) {
		return nil, errors.New("input is not valid UTF-8")
	}
	return content, nil
}
