package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abelbrown/delayboard/internal/api"
	"github.com/abelbrown/delayboard/internal/model"
	"github.com/abelbrown/delayboard/internal/subscribe"
)

func reportCmd(g *globals) *cobra.Command {
	var issue, description string
	cmd := &cobra.Command{
		Use:   "report <line>",
		Short: "Submit a rider report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cat, err := g.setup()
			if err != nil {
				return err
			}
			line := args[0]
			if !cat.Has(line) {
				return api.ValidationError("report", fmt.Sprintf("unknown line %q", line))
			}
			t := model.IssueType(issue)
			if issue == "" {
				t = cat.DefaultIssueType()
			}
			if !t.Valid() {
				return api.ValidationError("report", fmt.Sprintf("unknown issue type %q", issue))
			}

			ctx, cancel := g.context()
			defer cancel()
			r, err := client.SubmitReport(ctx, line, t, description)
			if err != nil {
				return err
			}
			if ok, err := g.emit(cmd.OutOrStdout(), r); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report #%d submitted for line %s (%s)\n", r.ID, r.Line, cat.IssueLabel(r.IssueType))
			return nil
		},
	}
	cmd.Flags().StringVar(&issue, "issue", "", "Issue type (default from catalog)")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	return cmd
}

func upvoteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "upvote <id>",
		Short: "Upvote a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return api.ValidationError("upvote", fmt.Sprintf("bad report id %q", args[0]))
			}
			client, _, err := g.setup()
			if err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()

			ack, err := client.UpvoteReport(ctx, id)
			if err != nil {
				return err
			}
			if ok, err := g.emit(cmd.OutOrStdout(), ack); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Upvoted report #%d\n", id)
			return nil
		},
	}
}

func subscribeCmd(g *globals) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "subscribe <line>",
		Short: "Subscribe an email address to a line's delay alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cat, err := g.setup()
			if err != nil {
				return err
			}
			if !cat.Has(args[0]) {
				return api.ValidationError("subscribe", fmt.Sprintf("unknown line %q", args[0]))
			}

			flow := subscribe.New(client, args[0], nil)
			if err := flow.SetEmail(email); err != nil {
				return err
			}
			ctx, cancel := g.context()
			defer cancel()
			msg, err := flow.Submit(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", flow.Message(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Address to notify")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
