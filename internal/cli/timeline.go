package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/ppiankov/heritage/internal/model"
	"github.com/ppiankov/heritage/internal/timeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	timelineFormat  string
	timelinePeriod  string
	timelineTimeout time.Duration
)

// timelineCmd represents the timeline command
var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print monuments grouped into historical periods",
	Long: `Timeline fetches every published monument and prints the ordered
historical periods with their members.

Formats: text (default), json, yaml, md (rendered for the terminal).

Example:
  heritage timeline
  heritage timeline --format json
  heritage timeline --period "Mughal Era" --format md`,
	Args: cobra.NoArgs,
	RunE: runTimeline,
}

func init() {
	rootCmd.AddCommand(timelineCmd)

	timelineCmd.Flags().StringVarP(&timelineFormat, "format", "f", "text", "output format (text, json, yaml, md)")
	timelineCmd.Flags().StringVar(&timelinePeriod, "period", "", "only print this period")
	timelineCmd.Flags().DurationVar(&timelineTimeout, "timeout", time.Minute, "overall timeout")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	render, ok := timelineRenderers[strings.ToLower(timelineFormat)]
	if !ok {
		return fmt.Errorf("unknown format %q (want text, json, yaml or md)", timelineFormat)
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	svc, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timelineTimeout)
	defer cancel()

	periods, err := svc.Periods(ctx)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}

	if timelinePeriod != "" {
		p, found := timeline.Find(periods, timelinePeriod)
		if !found {
			return fmt.Errorf("no monuments in period %q", timelinePeriod)
		}
		periods = []timeline.Period{p}
	}

	return render(cmd.OutOrStdout(), summarize(periods))
}

// periodSummary is the printable form of a period
type periodSummary struct {
	Name      string         `json:"name" yaml:"name"`
	DateRange string         `json:"date_range" yaml:"date_range"`
	StartYear int            `json:"start_year" yaml:"start_year"`
	EndYear   int            `json:"end_year" yaml:"end_year"`
	Monuments []monumentLine `json:"monuments" yaml:"monuments"`
}

type monumentLine struct {
	Name      string `json:"name" yaml:"name"`
	Slug      string `json:"slug" yaml:"slug"`
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
	BuildYear *int   `json:"build_year,omitempty" yaml:"build_year,omitempty"`
}

func summarize(periods []timeline.Period) []periodSummary {
	out := make([]periodSummary, 0, len(periods))
	for _, p := range periods {
		s := periodSummary{
			Name:      p.Name,
			DateRange: p.DateRange,
			StartYear: p.StartYear,
			EndYear:   p.EndYear,
			Monuments: make([]monumentLine, 0, len(p.Monuments)),
		}
		for _, m := range p.Monuments {
			s.Monuments = append(s.Monuments, monumentLine{
				Name:      m.Name,
				Slug:      m.Slug,
				Location:  model.Str(m.Location),
				BuildYear: m.BuildYear,
			})
		}
		out = append(out, s)
	}
	return out
}

var timelineRenderers = map[string]func(io.Writer, []periodSummary) error{
	"text": renderText,
	"json": renderJSON,
	"yaml": renderYAML,
	"md":   renderTerminalMarkdown,
}

func renderText(w io.Writer, periods []periodSummary) error {
	if len(periods) == 0 {
		_, err := fmt.Fprintln(w, "No timeline data available")
		return err
	}
	var b strings.Builder
	for _, p := range periods {
		fmt.Fprintf(&b, "%s (%s) - %d %s\n", p.Name, p.DateRange, len(p.Monuments), plural(len(p.Monuments), "monument", "monuments"))
		for _, m := range p.Monuments {
			fmt.Fprintf(&b, "  %-6s %s", yearText(m.BuildYear), m.Name)
			if m.Location != "" {
				fmt.Fprintf(&b, " - %s", m.Location)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderJSON(w io.Writer, periods []periodSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(periods)
}

func renderYAML(w io.Writer, periods []periodSummary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(periods); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// renderMarkdown builds the markdown document behind the md format
func renderMarkdown(periods []periodSummary) string {
	var b strings.Builder
	b.WriteString("# Historical Timeline\n\n")
	if len(periods) == 0 {
		b.WriteString("_No timeline data available_\n")
		return b.String()
	}
	for _, p := range periods {
		fmt.Fprintf(&b, "## %s\n\n*%s* · %d %s\n\n", escapeMarkdown(p.Name), escapeMarkdown(p.DateRange), len(p.Monuments), plural(len(p.Monuments), "monument", "monuments"))
		for _, m := range p.Monuments {
			fmt.Fprintf(&b, "- **%s** (%s)", escapeMarkdown(m.Name), yearText(m.BuildYear))
			if m.Location != "" {
				fmt.Fprintf(&b, ", %s", escapeMarkdown(m.Location))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"~", `\~`,
	"!", `\!`,
)

// escapeMarkdown backslash-escapes inline markdown in free text
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func renderTerminalMarkdown(w io.Writer, periods []periodSummary) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(renderMarkdown(periods))
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func yearText(year *int) string {
	if year == nil {
		return "n.d."
	}
	return fmt.Sprintf("%d", *year)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
