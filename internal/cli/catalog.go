package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/ytget/phin/internal/catalog"
	"github.com/ytget/phin/internal/model"
)

// Catalog output formats
const (
	formatTable = "table"
	formatYAML  = "yaml"
)

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and extend the catalog of recordings",
	}

	cmd.AddCommand(
		newCatalogListCommand(a),
		newCatalogValidateCommand(a),
		newCatalogImportCommand(a),
	)
	return cmd
}

func newCatalogListCommand(a *app) *cobra.Command {
	var (
		format      string
		catalogFile string
		categories  []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := a.loadCatalog(catalogFile, categories)
			if err != nil {
				return err
			}

			switch format {
			case formatYAML:
				return cat.WriteYAML(cmd.OutOrStdout())
			case formatTable:
				return printCatalogTable(cmd.OutOrStdout(), cat, a.settings.GetOutputRoot(), a.settings.GetAudioFormat())
			default:
				return fmt.Errorf("unknown format %q (want %s or %s)", format, formatTable, formatYAML)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or yaml")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "YAML catalog to use instead of the built-in one")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "only list these categories")
	return cmd
}

func printCatalogTable(w io.Writer, cat *catalog.Catalog, root, ext string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tID\tTITLE\tOUTPUT")
	for _, e := range cat.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Category, e.ID, e.Title, catalog.OutputPath(root, e, ext))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := cat.CountByCategory()
	fmt.Fprintf(w, "\n%d entries", cat.Len())
	for _, c := range cat.Categories() {
		fmt.Fprintf(w, ", %s: %d", c, counts[c])
	}
	fmt.Fprintln(w)
	return nil
}

func newCatalogValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog.yaml]",
		Short: "Check a catalog for invalid entries and colliding output paths",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			cat, err := a.loadCatalog(path, nil)
			if err != nil {
				return err
			} else if err = cat.Validate(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Catalog is valid: %d entries in %d categories\n",
				cat.Len(), len(cat.Categories()))
			return nil
		},
	}
}

func newCatalogImportCommand(a *app) *cobra.Command {
	var (
		category string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "import <playlist-url>",
		Short: "Print catalog entries for the videos of a YouTube playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := model.ParseCategory(category)
			if err != nil {
				return err
			}

			im := catalog.NewImporter()
			if timeout > 0 {
				im.SetTimeout(timeout)
			}

			pl, err := im.Import(cmd.Context(), args[0], cat)
			if err != nil {
				return err
			}

			a.log.Printf("[INFO] Imported %d videos from playlist %s\n", len(pl.Items), pl.ID)
			return catalog.New(pl.Entries()).WriteYAML(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category of the imported entries")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long")
	cmd.MarkFlagRequired("category") // nolint: errcheck
	return cmd
}
