package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/showroom/internal/lead"
	"github.com/zulandar/showroom/internal/models"
	"github.com/zulandar/showroom/internal/notify"
)

func newLeadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List and add leads",
	}

	cmd.AddCommand(newLeadsListCmd())
	cmd.AddCommand(newLeadsAddCmd())
	cmd.AddCommand(newLeadsDigestCmd())
	return cmd
}

func newLeadsListCmd() *cobra.Command {
	var (
		configPath string
		filter     lead.ListFilter
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List captured leads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeadsList(cmd, configPath, filter)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "showroom.yaml", "path to Showroom config file")
	cmd.Flags().StringVar(&filter.Source, "source", "", "filter by source ("+models.SourceScripted+", "+models.SourceArchive+", "+models.SourceManual+")")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 50, "maximum number of leads")
	return cmd
}

func runLeadsList(cmd *cobra.Command, configPath string, filter lead.ListFilter) error {
	_, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}
	archiver, err := lead.New(lead.Opts{DB: gormDB})
	if err != nil {
		return err
	}

	leads, err := archiver.List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(leads) == 0 {
		fmt.Fprintln(out, "No leads found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSOURCE\tLANG\tNAME\tCOMPANY\tCONTACT\tNEED")
	for _, l := range leads {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.CreatedAt.Local().Format("2006-01-02 15:04"), l.Source, dashIfEmpty(l.Language),
			dashIfEmpty(truncate(l.Name, 24)), dashIfEmpty(truncate(l.Company, 24)),
			dashIfEmpty(truncate(l.Contact, 32)), dashIfEmpty(truncate(oneLine(l.Need), 40)))
	}
	w.Flush()
	return nil
}

func newLeadsAddCmd() *cobra.Command {
	var (
		configPath string
		draft      models.LeadDraft
		language   string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a lead by hand",
		Long:  "Stores a lead taken outside the chat, e.g. over the phone. A name or a contact is required.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeadsAdd(cmd, configPath, draft, language)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "showroom.yaml", "path to Showroom config file")
	cmd.Flags().StringVar(&draft.Name, "name", "", "contact person")
	cmd.Flags().StringVar(&draft.Company, "company", "", "company")
	cmd.Flags().StringVar(&draft.Contact, "contact", "", "phone, email or messenger handle")
	cmd.Flags().StringVar(&draft.Need, "need", "", "what the customer is looking for")
	cmd.Flags().StringVar(&language, "lang", "en", "conversation language")
	return cmd
}

func runLeadsAdd(cmd *cobra.Command, configPath string, draft models.LeadDraft, language string) error {
	cfg, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}
	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	archiver, err := lead.New(lead.Opts{DB: gormDB, Notifier: notifier})
	if err != nil {
		return err
	}

	l, err := archiver.CreateManual(cmd.Context(), draft, language)
	if err != nil {
		return err
	}
	archiver.Wait()
	fmt.Fprintf(cmd.OutOrStdout(), "Created lead %d (%s)\n", l.ID, l.Source)
	return nil
}

func newLeadsDigestCmd() *cobra.Command {
	var (
		configPath string
		send       bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print (or send) the lead digest for the last 24 hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeadsDigest(cmd, configPath, send)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "showroom.yaml", "path to Showroom config file")
	cmd.Flags().BoolVar(&send, "send", false, "deliver the digest to the configured alert channels")
	return cmd
}

func runLeadsDigest(cmd *cobra.Command, configPath string, send bool) error {
	cfg, gormDB, err := connectFromConfig(cmd, configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	now := time.Now()
	report, err := notify.BuildReport(ctx, gormDB, now.Add(-notify.DefaultDigestWindow), now)
	if err != nil {
		return err
	}
	alert := notify.FormatReport(report)
	fmt.Fprintln(cmd.OutOrStdout(), notify.Plain(alert))

	if !send {
		return nil
	}
	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	if err := notifier.Notify(ctx, alert); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Digest sent.")
	return nil
}
