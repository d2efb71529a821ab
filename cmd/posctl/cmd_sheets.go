package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"kasirpos/internal/domain"
	"kasirpos/internal/service"
	"kasirpos/internal/sheet"
)

// posctl import <file.xlsx> [--commit]
func (c *cli) importCmd() *cobra.Command {
	var commit bool
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Validate a product workbook, adding the valid rows with --commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := sheet.ReadProductRows(f)
			if err != nil {
				return err
			}
			var result domain.ImportResult
			if commit {
				result, err = c.rt.Service.ImportProducts(c.ctx(cmd), rows)
			} else {
				result, err = c.rt.Service.ValidateImport(c.ctx(cmd), rows)
			}
			if err != nil {
				return err
			}
			printImport(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "add valid rows to the catalog")
	return cmd
}

func printImport(w io.Writer, result domain.ImportResult) {
	fmt.Fprintf(w, "valid rows: %d\n", len(result.Valid))
	fmt.Fprintf(w, "rejected rows: %d\n", len(result.Errors))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range result.Errors {
		fmt.Fprintf(tw, "  row %d\t%s\t%s\n", e.Row, e.Data.Barcode, e.Message)
	}
	tw.Flush()
	if result.Committed {
		fmt.Fprintln(w, "committed")
	} else if len(result.Valid) > 0 {
		fmt.Fprintln(w, "dry run, re-run with --commit to add the valid rows")
	}
}

// posctl export-sales --from 2025-01-01 --to 2025-01-31 --out sales.xlsx
func (c *cli) exportSalesCmd() *cobra.Command {
	var from, to, out string
	cmd := &cobra.Command{
		Use:   "export-sales",
		Short: "Write ledger lines between two dates to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc := c.rt.Service.Location()
			start, err := time.ParseInLocation("2006-01-02", from, loc)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := time.ParseInLocation("2006-01-02", to, loc)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			rows, err := c.rt.Service.SalesExport(c.ctx(cmd), start, end)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("sales_%s_%s.xlsx", from, to)
			}
			if err := writeFile(out, func(w io.Writer) error { return sheet.WriteSales(w, rows, loc) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&out, "out", "", "output file")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// posctl export-stock --out stock.xlsx
func (c *cli) exportStockCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-stock",
		Short: "Write current stock levels to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.rt.Service.StockSnapshot(c.ctx(cmd))
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("stock_%s.xlsx", time.Now().In(c.rt.Service.Location()).Format("2006-01-02"))
			}
			if err := writeFile(out, func(w io.Writer) error { return sheet.WriteStock(w, rows) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d products to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file")
	return cmd
}

// posctl report --period month --date 2025-03-01
func (c *cli) reportCmd() *cobra.Command {
	var period, date string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the sales summary for a day, month or year",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := service.ParsePeriod(period)
			if err != nil {
				return err
			}
			ref := time.Now()
			if date != "" {
				ref, err = time.ParseInLocation("2006-01-02", date, c.rt.Service.Location())
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}
			report, err := c.rt.Service.PeriodReport(c.ctx(cmd), p, ref)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", report.Period, report.Reference)
			fmt.Fprintf(w, "net revenue: %s\n", report.NetRevenue.StringFixed(2))
			fmt.Fprintf(w, "transactions: %d (%d sales, %d returns)\n", report.TransactionCount, report.SaleCount, report.ReturnCount)
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			for _, row := range report.Products {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", row.ProductID, row.Name, row.Quantity, row.Revenue.StringFixed(2))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&period, "period", "day", "day, month or year")
	cmd.Flags().StringVar(&date, "date", "", "reference day, YYYY-MM-DD (default today)")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
