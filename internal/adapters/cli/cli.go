// Package cli is the pricectl operator command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"workshop-manager/internal/app"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Opener builds the application service on first use, so --help and argument
// errors never touch the database. The returned func releases resources.
type Opener func(ctx context.Context) (app.ApplicationService, func(), error)

type runner struct {
	open Opener
}

// with opens the service, runs fn and closes the service again.
func (r *runner) with(cmd *cobra.Command, fn func(svc app.ApplicationService) error) error {
	svc, closeFn, err := r.open(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

// NewRootCommand builds the pricectl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	r := &runner{open: open}

	root := &cobra.Command{
		Use:           "pricectl",
		Short:         "Operate the workshop pricing data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		r.ratesCommand(),
		r.priceCommand(),
		r.settingsCommand(),
		r.quoteCommand(),
	)
	return root
}

// Run executes pricectl with args (os.Args[1:]).
func Run(ctx context.Context, open Opener, args []string) error {
	root := NewRootCommand(open)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// ── rates ─────────────────────────────────────────────────────────────────────

func (r *runner) ratesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Inspect and adjust the material rate table",
	}

	var material string
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the rate table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				rates, err := svc.ListRates(cmd.Context(), material)
				if err != nil {
					return err
				}
				printRates(cmd.OutOrStdout(), rates)
				return nil
			})
		},
	}
	list.Flags().StringVar(&material, "material", "", "only this material")

	bulk := &cobra.Command{
		Use:   "bulk-adjust <material|ALL> <percentage>",
		Short: "Scale every rate of a material by a percentage",
		Long: "Multiplies unit prices by 1 + percentage/100 in one transaction.\n" +
			"Negative percentages lower prices; below -100 they go negative.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid percentage %q", args[1])
			}
			return r.with(cmd, func(svc app.ApplicationService) error {
				res, err := svc.BulkAdjust(cmd.Context(), app.BulkAdjustRequest{Material: args[0], Percentage: pct})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Adjusted %d rate(s) for %s by %s%% (factor %s).\n",
					res.Affected, res.Material, res.Percentage.String(), res.Factor.String())
				return nil
			})
		},
	}

	var exportMaterial, exportOut string
	exp := &cobra.Command{
		Use:   "export",
		Short: "Write the rate table to an XLSX file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				file, err := svc.ExportRates(cmd.Context(), exportMaterial)
				if err != nil {
					return err
				}
				return writeFile(cmd.OutOrStdout(), exportOut, file)
			})
		},
	}
	exp.Flags().StringVar(&exportMaterial, "material", "", "only this material")
	exp.Flags().StringVarP(&exportOut, "output", "o", "", "output path (default: generated filename)")

	cmd.AddCommand(list, bulk, exp)
	return cmd
}

// ── price ─────────────────────────────────────────────────────────────────────

func (r *runner) priceCommand() *cobra.Command {
	var productID, clientID int
	var qty string

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Preview the engine price of a product for a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			quantity, err := decimal.NewFromString(qty)
			if err != nil {
				return fmt.Errorf("invalid quantity %q", qty)
			}
			return r.with(cmd, func(svc app.ApplicationService) error {
				b, err := svc.PriceLine(cmd.Context(), app.PriceLineRequest{
					ProductID: productID,
					ClientID:  clientID,
					Quantity:  quantity,
				})
				if err != nil {
					return err
				}
				printBreakdown(cmd.OutOrStdout(), b)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&productID, "product", 0, "product id")
	cmd.Flags().IntVar(&clientID, "client", 0, "client id")
	cmd.Flags().StringVar(&qty, "qty", "1", "quantity")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

// ── settings ──────────────────────────────────────────────────────────────────

func (r *runner) settingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change business settings",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Print all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				settings, err := svc.ListSettings(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range settings {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", s.Key, s.Value)
				}
				return nil
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				s, err := svc.GetSetting(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s.Value)
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting (tax_rate must be between 0 and 1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				s, err := svc.SetSetting(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", s.Key, s.Value)
				return nil
			})
		},
	}

	cmd.AddCommand(list, get, set)
	return cmd
}

// ── quote ─────────────────────────────────────────────────────────────────────

func (r *runner) quoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Inspect quotes and move them through their lifecycle",
	}

	show := &cobra.Command{
		Use:   "show <id|number>",
		Short: "Print a quote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				res, err := svc.GetQuote(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printQuote(cmd.OutOrStdout(), res.Quote)
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status <id|number> <status>",
		Short: "Move a quote to DRAFT, SENT, ACCEPTED or REJECTED",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				res, err := svc.SetQuoteStatus(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Quote %s is now %s.\n", res.Quote.Number, res.Quote.Status)
				return nil
			})
		},
	}

	convert := &cobra.Command{
		Use:   "convert <id|number>",
		Short: "Turn a quote into a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				res, err := svc.ConvertQuote(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created order %s (total %s).\n",
					res.Order.Number, res.Order.Total.StringFixed(2))
				return nil
			})
		},
	}

	var pdfOut string
	pdf := &cobra.Command{
		Use:   "pdf <id|number>",
		Short: "Write a quote PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.with(cmd, func(svc app.ApplicationService) error {
				file, err := svc.QuotePDF(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeFile(cmd.OutOrStdout(), pdfOut, file)
			})
		},
	}
	pdf.Flags().StringVarP(&pdfOut, "output", "o", "", "output path (default: generated filename)")

	cmd.AddCommand(show, status, convert, pdf)
	return cmd
}

// writeFile saves a generated document and reports where it went.
func writeFile(out io.Writer, path string, file *app.FileResult) error {
	if path == "" {
		path = file.Filename
	}
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Wrote %s (%d bytes).\n", path, len(file.Data))
	return nil
}
