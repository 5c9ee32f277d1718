package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"medialib/internal/client"
	"medialib/pkg/search"
)

type searchOpts struct {
	sort     string
	order    string
	page     int
	pageSize int
	remove   []int
}

func (o *searchOpts) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.sort, "sort", "", "sort field")
	cmd.Flags().StringVar(&o.order, "order", "", "asc or desc")
	cmd.Flags().IntVar(&o.page, "page", 0, "page number")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 0, "results per page")
	cmd.Flags().IntSliceVar(&o.remove, "remove", nil, "drop chip N (as numbered in the output) before searching")
}

// params turns a parsed query and the paging flags into wire parameters.
func (o *searchOpts) params(r search.Result) url.Values {
	var s *search.Sort
	if o.sort != "" || o.order != "" {
		s = &search.Sort{Field: o.sort, Order: o.order}
	}
	v := search.ToParams(r.Filters, s)
	if o.page > 0 {
		v.Set(search.ParamPage, strconv.Itoa(o.page))
	}
	if o.pageSize > 0 {
		v.Set(search.ParamPageSize, strconv.Itoa(o.pageSize))
	}
	return v
}

func resourceCmd(name, short string) *cobra.Command {
	cmd := &cobra.Command{Use: name, Short: short}
	ctx := search.ContextMedia
	if name == "characters" {
		ctx = search.ContextCharacter
	}
	cmd.AddCommand(searchCmd(ctx))
	return cmd
}

func searchCmd(sctx search.Context) *cobra.Command {
	var opts searchOpts
	cmd := &cobra.Command{
		Use:     "search [query...]",
		Short:   "Search with a structured query, e.g. naruto tag:action year:>2000",
		Example: "  medialib media search naruto year:>2000\n" +
			"  medialib library search -- -user_status:dropped --sort user_score",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			return runSearch(cmd, a, sctx, strings.Join(args, " "), &opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runSearch(cmd *cobra.Command, a *app, sctx search.Context, query string, opts *searchOpts) error {
	r, err := client.PrepareQuery(query, sctx, opts.remove)
	if err != nil {
		return err
	}
	params := opts.params(r)
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if len(opts.remove) > 0 {
		fmt.Fprintf(out, "query: %s\n", r.Query)
	}
	fmt.Fprintln(out, renderChips(r.Chips()))
	fmt.Fprintln(out)

	switch sctx {
	case search.ContextCharacter:
		page, err := a.api.SearchCharacters(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, characterTable(page.Characters))
		fmt.Fprintln(out, renderFooter(page.PageInfo))
	case search.ContextLibrary:
		if err := a.requireLogin(); err != nil {
			return err
		}
		page, err := a.api.SearchLibrary(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, libraryTable(page.Library))
		fmt.Fprintln(out, renderFooter(page.PageInfo))
	default:
		page, err := a.api.SearchMedia(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, mediaTable(page.Media))
		fmt.Fprintln(out, renderFooter(page.PageInfo))
	}

	a.api.Session().Remember(strings.TrimSpace(r.Query))
	return a.save()
}

func explainCmd() *cobra.Command {
	var (
		ctxName string
		opts    searchOpts
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:     "explain [query...]",
		Short:   "Show how a query is parsed without calling the API",
		Example: "  medialib explain --context character -- Itachi media:Naruto -name:Sasuke",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctxName == "" {
				if cfg, err := client.Load(); err == nil {
					ctxName = cfg.DefaultContext
				}
			}
			sctx, ok := search.ParseContext(ctxName)
			if !ok {
				return fmt.Errorf("unknown context %q (want media, character or library)", ctxName)
			}
			r, err := client.PrepareQuery(strings.Join(args, " "), sctx, opts.remove)
			if err != nil {
				return err
			}
			return writeExplain(cmd.OutOrStdout(), r, opts.params(r), asJSON)
		},
	}
	cmd.Flags().StringVar(&ctxName, "context", "", "media, character or library")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	opts.bind(cmd)
	return cmd
}

type explanation struct {
	Query     string         `json:"query"`
	Context   search.Context `json:"context"`
	Filters   search.Filters `json:"filters"`
	Chips     []string       `json:"chips"`
	Params    url.Values     `json:"params"`
	Canonical string         `json:"canonical"`
	PlainText string         `json:"plain_text,omitempty"`
}

func writeExplain(w io.Writer, r search.Result, params url.Values, asJSON bool) error {
	chips := r.Chips()
	ex := explanation{
		Query:     r.Query,
		Context:   r.Context,
		Filters:   r.Filters,
		Chips:     make([]string, len(chips)),
		Params:    params,
		Canonical: search.ToQuery(params),
		PlainText: r.Plain,
	}
	for i, c := range chips {
		ex.Chips[i] = c.String()
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ex)
	}

	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("context"), ex.Context)
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("chips"), renderChips(chips))
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("params"), encodeParams(params))
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("canonical"), ex.Canonical)
	return nil
}

func encodeParams(p url.Values) string {
	if len(p) == 0 {
		return dimStyle.Render("none")
	}
	return p.Encode()
}

func recentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recent search queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			for i, q := range a.api.Session().Recent() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", dimStyle.Render(strconv.Itoa(i+1)), q)
			}
			return nil
		},
	}
}
