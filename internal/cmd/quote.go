package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"megashipping-mock/internal/quote"
)

type quoteOptions struct {
	origin, destination        string
	weight, length             string
	width, height              string
	declaredValue, serviceType string
	output                     string
}

var quoteFlags quoteOptions

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Compute a quote offline, without rate limiting or delay",
	Example: `  megashipping quote --origin 01310100 --destination 30140071 \
    --weight 2.5 --length 30 --width 20 --height 10 --service-type all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		for name, v := range map[string]string{
			"origin":         quoteFlags.origin,
			"destination":    quoteFlags.destination,
			"weight":         quoteFlags.weight,
			"length":         quoteFlags.length,
			"width":          quoteFlags.width,
			"height":         quoteFlags.height,
			"declared_value": quoteFlags.declaredValue,
			"service_type":   quoteFlags.serviceType,
		} {
			if v != "" {
				q.Set(name, v)
			}
		}

		req, err := quote.ParseRequest(q)
		if err != nil {
			return err
		}
		res := quote.NewCalculator().Quote(req)

		out := cmd.OutOrStdout()
		switch strings.ToLower(quoteFlags.output) {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		case "", "table":
			_, err := fmt.Fprintln(out, renderQuote(res))
			return err
		default:
			return fmt.Errorf("unknown output format %q (use table or json)", quoteFlags.output)
		}
	},
}

func renderQuote(res quote.Result) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Quote %s", res.QuoteID)

	if res.Status != quote.StatusSuccess {
		t.AppendHeader(table.Row{"Status", "Message"})
		t.AppendRow(table.Row{res.Status, res.Message})
		return t.Render()
	}

	t.AppendHeader(table.Row{"Code", "Service", "Price (R$)", "Days", "Estimated"})
	for _, s := range res.Services {
		days := fmt.Sprintf("%d-%d", s.DeliveryTime.MinDays, s.DeliveryTime.MaxDays)
		if s.DeliveryTime.MinDays == s.DeliveryTime.MaxDays {
			days = fmt.Sprintf("%d", s.DeliveryTime.MinDays)
		}
		t.AppendRow(table.Row{s.Code, s.Name, fmt.Sprintf("%.2f", s.Price), days, s.DeliveryTime.EstimatedDate})
	}
	t.AppendFooter(table.Row{"", "Regions", strings.Join(res.AvailableRegions, ", "), "", ""})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	return t.Render()
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	f := quoteCmd.Flags()
	f.StringVar(&quoteFlags.origin, "origin", "", "origin CEP")
	f.StringVar(&quoteFlags.destination, "destination", "", "destination CEP")
	f.StringVar(&quoteFlags.weight, "weight", "", "weight in kg")
	f.StringVar(&quoteFlags.length, "length", "", "length in cm")
	f.StringVar(&quoteFlags.width, "width", "", "width in cm")
	f.StringVar(&quoteFlags.height, "height", "", "height in cm")
	f.StringVar(&quoteFlags.declaredValue, "declared-value", "", "declared value in BRL")
	f.StringVar(&quoteFlags.serviceType, "service-type", "", "standard, express or all")
	f.StringVarP(&quoteFlags.output, "output", "o", "table", "output format: table or json")
}
