package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a dev fixture account and store the credential",
		Long: `Sign in against the dev stub server. Customer logins seed the cookie jar;
admin logins use the password grant and store the refresh token, which
persists across runs when CREDENTIAL_STORE=redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := opts.parseRole()
			if err != nil {
				return err
			}
			client, cleanup, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			cred, err := client.Login(cmd.Context(), role, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s session ready, access token expires %s\n", role, cred.Expiry.Format("15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name (default: the role's dev fixture)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (default: DEV_PASSWORD)")
	return cmd
}
