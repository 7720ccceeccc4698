package main

import (
	"encoding/hex"
	"fmt"

	"github.com/iov-one/cosign/x/multisig"
	"github.com/spf13/cobra"
)

func newSubmitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <id>",
		Short: "Send a fully signed proposal to the node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctl, closeFn, err := a.controller(true)
			if err != nil {
				return err
			}
			defer closeFn()

			p, err := ctl.Submit(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, multisig.ProposalSummary(p))
			fmt.Fprintf(out, "transaction hash %s\n", hex.EncodeToString(p.Hash))
			return nil
		},
	}
}

func newCloseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Abandon an open proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctl, closeFn, err := a.controller(false)
			if err != nil {
				return err
			}
			defer closeFn()

			p, err := ctl.Close(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), multisig.ProposalSummary(p))
			return nil
		},
	}
}

func newOutcomeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "outcome <id> <finalized|failed|expired>",
		Short: "Record what happened to a submitted proposal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := multisig.ParseProposalStatus(args[1])
			if err != nil {
				return err
			}
			ctl, closeFn, err := a.controller(false)
			if err != nil {
				return err
			}
			defer closeFn()

			p, err := ctl.RecordOutcome(id, status)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), multisig.ProposalSummary(p))
			return nil
		},
	}
}
