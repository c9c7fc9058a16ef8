package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/flagr-loadgen/internal/loadgen"
	"github.com/TimurManjosov/flagr-loadgen/internal/payload"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintPayloads outputs sample evaluation requests. JSON prints one compact
// object per line, exactly as they would be sent.
func PrintPayloads(w io.Writer, reqs []payload.EvaluationRequest, format OutputFormat) error {
	switch format {
	case FormatJSON:
		for _, r := range reqs {
			b, err := r.Marshal()
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, string(b)); err != nil {
				return err
			}
		}
		return nil
	case FormatYAML:
		return printYAML(w, reqs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintSummary outputs run statistics in the specified format.
func PrintSummary(w io.Writer, sum loadgen.Summary, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, toSummaryDoc(sum))
	case FormatYAML:
		return printYAML(w, toSummaryDoc(sum))
	case FormatTable:
		return printSummaryTable(w, sum)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

type summaryDoc struct {
	Iterations int         `json:"iterations" yaml:"iterations"`
	Targets    []targetDoc `json:"targets" yaml:"targets"`
}

type targetDoc struct {
	Name     string         `json:"name" yaml:"name"`
	Count    int            `json:"count" yaml:"count"`
	MinMS    float64        `json:"min_ms" yaml:"min_ms"`
	MeanMS   float64        `json:"mean_ms" yaml:"mean_ms"`
	P50MS    float64        `json:"p50_ms" yaml:"p50_ms"`
	P99MS    float64        `json:"p99_ms" yaml:"p99_ms"`
	MaxMS    float64        `json:"max_ms" yaml:"max_ms"`
	Statuses map[string]int `json:"statuses" yaml:"statuses"`
}

func toSummaryDoc(sum loadgen.Summary) summaryDoc {
	doc := summaryDoc{Iterations: sum.Iterations, Targets: []targetDoc{}}
	for _, t := range sum.Targets {
		statuses := make(map[string]int, len(t.Statuses))
		for code, n := range t.Statuses {
			statuses[strconv.Itoa(code)] = n
		}
		doc.Targets = append(doc.Targets, targetDoc{
			Name:     t.Name,
			Count:    t.Count,
			MinMS:    ms(t.Min),
			MeanMS:   ms(t.Mean),
			P50MS:    ms(t.P50),
			P99MS:    ms(t.P99),
			MaxMS:    ms(t.Max),
			Statuses: statuses,
		})
	}
	return doc
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func printJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printSummaryTable(w io.Writer, sum loadgen.Summary) error {
	if _, err := fmt.Fprintf(w, "Iterations: %d\n", sum.Iterations); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Target", "Requests", "Min", "Mean", "P50", "P99", "Max", "Statuses")

	for _, t := range sum.Targets {
		table.Append(
			t.Name,
			strconv.Itoa(t.Count),
			fmtMS(t.Min),
			fmtMS(t.Mean),
			fmtMS(t.P50),
			fmtMS(t.P99),
			fmtMS(t.Max),
			formatStatuses(t.Statuses),
		)
	}

	return table.Render()
}

func fmtMS(d time.Duration) string {
	return strconv.FormatFloat(ms(d), 'f', 3, 64) + "ms"
}

// formatStatuses renders {200: 9, 500: 1} as "200:9 500:1".
func formatStatuses(statuses map[int]int) string {
	codes := make([]int, 0, len(statuses))
	for code := range statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, fmt.Sprintf("%d:%d", code, statuses[code]))
	}
	return strings.Join(parts, " ")
}
