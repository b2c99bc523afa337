package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/service"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
)

var passCmd = &cobra.Command{
	Use:   "pass",
	Short: "Issue and use membership passes",
}

var passIssueReq types.IssuePassRequest

var passIssueCmd = &cobra.Command{
	Use:     "issue",
	Short:   "Issue a pass to a user",
	Example: `  kragdb-server pass issue --user-id 3 --expiry "2026-12-31 23:59:59" --sessions 10`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.close()

		adminSvc := service.NewAdminService(st.users, st.passes, logger)
		p, err := adminSvc.IssuePass(cmd.Context(), service.Operator, passIssueReq)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var passUseReq types.AccessRequest

var passUseCmd = &cobra.Command{
	Use:   "use",
	Short: "Check a user in, spending a session if needed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.close()

		if cmd.Flags().Changed("pass-id") {
			id, _ := cmd.Flags().GetInt64("pass-id")
			passUseReq.PassID = &id
		}
		if passUseReq.ModuleID == "" {
			passUseReq.ModuleID = "cli"
		}

		accessSvc := service.NewAccessService(st.passes, st.events, logger)
		resp, err := accessSvc.Decide(cmd.Context(), passUseReq)
		if err != nil && !errors.Is(err, service.ErrNoPass) {
			return err
		}
		if perr := printJSON(resp); perr != nil {
			return perr
		}
		return err
	},
}

func init() {
	f := passIssueCmd.Flags()
	f.Int32Var(&passIssueReq.UserID, "user-id", 0, "owner of the pass")
	f.StringVar(&passIssueReq.Expiry, "expiry", "", "time pass expiry, RFC 3339 or YYYY-MM-DD HH:MM:SS (UTC)")
	f.Uint32Var(&passIssueReq.Sessions, "sessions", 0, "paid sessions")
	_ = passIssueCmd.MarkFlagRequired("user-id")

	f = passUseCmd.Flags()
	f.Int32Var(&passUseReq.UserID, "user-id", 0, "user checking in")
	f.Int64("pass-id", 0, "pass to use (default: the user's first pass)")
	f.StringVar(&passUseReq.ModuleID, "module-id", "", "reader or door id recorded with the event")
	_ = passUseCmd.MarkFlagRequired("user-id")

	passCmd.AddCommand(passIssueCmd, passUseCmd)
}
