package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, closeFn, err := a.controller(false)
			if err != nil {
				return err
			}
			defer closeFn()

			var proposals []*multisig.Proposal
			if status == "" {
				proposals, err = ctl.List()
			} else {
				var s multisig.ProposalStatus
				if s, err = multisig.ParseProposalStatus(status); err != nil {
					return err
				}
				proposals, err = ctl.ListByStatus(s)
			}
			if err != nil {
				return err
			}
			writeTable(cmd.OutOrStdout(), proposals, a.clock.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list proposals in given status")
	return cmd
}

func writeTable(w io.Writer, proposals []*multisig.Proposal, now time.Time) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Kind", "Type", "Status", "Signatures", "Deadline"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, p := range proposals {
		table.Append([]string{
			strconv.FormatUint(p.ID, 10),
			string(p.Kind),
			p.Type,
			p.Status.String(),
			fmt.Sprintf("%d/%d", p.Signatures, p.Threshold),
			humanize.RelTime(p.Deadline.Time(), now, "ago", "from now"),
		})
	}
	table.Render()
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a proposal and its transaction",
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

			p, err := ctl.Get(id)
			if err != nil {
				return err
			}
			view := struct {
				*multisig.Proposal
				Transaction json.RawMessage `json:"transaction"`
				Hash        string          `json:"hash,omitempty"`
			}{
				Proposal:    p,
				Transaction: json.RawMessage(p.Transaction),
				Hash:        hex.EncodeToString(p.Hash),
			}
			raw, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}
