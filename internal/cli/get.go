package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Send one authenticated GET through the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := opts.parseRole()
			if err != nil {
				return err
			}
			client, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := client.EnsureLogin(cmd.Context(), role); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			resp, err := client.Get(cmd.Context(), role, args[0])
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			fmt.Fprintln(cmd.ErrOrStderr(), resp.Status)
			_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
			return err
		},
	}
}
