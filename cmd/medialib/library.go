package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"medialib/internal/client"
	"medialib/pkg/search"
)

func libraryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "library", Short: "Search and edit your library"}
	cmd.AddCommand(searchCmd(search.ContextLibrary), librarySetCmd(), libraryRemoveCmd(), libraryHistoryCmd())
	return cmd
}

func parseMediaArg(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid media id %q", s)
	}
	return id, nil
}

func librarySetCmd() *cobra.Command {
	var (
		upd   client.EntryUpdate
		score int
	)
	cmd := &cobra.Command{
		Use:   "set <media-id>",
		Short: "Add or update a library entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMediaArg(args[0])
			if err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			if cmd.Flags().Changed("score") {
				upd.Score = &score
			}
			entry, err := a.api.SetEntry(cmd.Context(), id, upd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s progress %d score %s\n",
				okStyle.Render("✓"), entry.MediaID, entry.Status, entry.Progress, optInt(entry.Score))
			return nil
		},
	}
	cmd.Flags().StringVar(&upd.Status, "status", "", "planned, watching, completed, on_hold or dropped")
	cmd.Flags().IntVar(&score, "score", 0, "score 1-10")
	cmd.Flags().IntVar(&upd.Progress, "progress", 0, "episodes or chapters done")
	cmd.Flags().StringVar(&upd.Notes, "notes", "", "free-form notes")
	return cmd
}

func libraryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <media-id>",
		Short: "Remove a library entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMediaArg(args[0])
			if err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			if err := a.api.RemoveEntry(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed %d\n", okStyle.Render("✓"), id)
			return nil
		},
	}
}

func libraryHistoryCmd() *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "history <media-id>",
		Short: "Show progress history for an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMediaArg(args[0])
			if err != nil {
				return err
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			params := url.Values{}
			if page > 0 {
				params.Set(search.ParamPage, strconv.Itoa(page))
			}
			if pageSize > 0 {
				params.Set(search.ParamPageSize, strconv.Itoa(pageSize))
			}
			res, err := a.api.History(cmd.Context(), id, params)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, historyTable(res.History))
			fmt.Fprintln(out, renderFooter(res.PageInfo))
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "entries per page")
	return cmd
}
