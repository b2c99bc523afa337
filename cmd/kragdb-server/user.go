package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/service"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateReq types.CreateUserRequest

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Example: `  kragdb-server user create --username ann --email ann@example.com --password s3cret
  kragdb-server user create --username ops --email ops@example.com --password s3cret --permissions ADMIN`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.close()

		if cmd.Flags().Changed("number") {
			n, _ := cmd.Flags().GetInt64("number")
			userCreateReq.Number = &n
		}

		adminSvc := service.NewAdminService(st.users, st.passes, logger)
		u, err := adminSvc.CreateUser(cmd.Context(), service.Operator, userCreateReq)
		if err != nil {
			return err
		}
		return printJSON(u)
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userCreateReq.Username, "username", "", "display name")
	f.StringVar(&userCreateReq.Email, "email", "", "login email, unique")
	f.StringVar(&userCreateReq.Password, "password", "", "login password")
	f.StringVar(&userCreateReq.Permissions, "permissions", "", `permission set, e.g. "ADMIN" or "PASS_READ|USER_READ"`)
	f.Int64("number", 0, "phone number, unique")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
