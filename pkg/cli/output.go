package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/platinummonkey/chainload/pkg/chainloader"
	"github.com/platinummonkey/chainload/pkg/plugins"
)

// report is the JSON form of a plan or run
type report struct {
	RunID       string               `json:"run_id"`
	ProcessName string               `json:"process_name"`
	LoadOrder   []reportEntry        `json:"load_order"`
	Loaded      int                  `json:"loaded"`
	Diagnostics []plugins.Diagnostic `json:"diagnostics"`
}

type reportEntry struct {
	Position     int      `json:"position"`
	GUID         string   `json:"guid"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	TypeName     string   `json:"type_name"`
	Location     string   `json:"location"`
	Outcome      string   `json:"outcome"`
	Dependencies []string `json:"dependencies,omitempty"`
}

func newReport(processName string, result *chainloader.Result) report {
	r := report{
		RunID:       result.RunID,
		ProcessName: processName,
		LoadOrder:   make([]reportEntry, 0, len(result.LoadOrder)),
		Loaded:      len(result.Loaded),
		Diagnostics: result.Diagnostics.All(),
	}

	for i, c := range result.LoadOrder {
		outcome, _ := result.Outcome(c.GUID)
		deps := make([]string, 0, len(c.Dependencies))
		for _, d := range c.Dependencies {
			deps = append(deps, d.String())
		}
		r.LoadOrder = append(r.LoadOrder, reportEntry{
			Position:     i + 1,
			GUID:         c.GUID,
			Name:         c.Name,
			Version:      c.Version.String(),
			TypeName:     c.TypeName,
			Location:     c.Location,
			Outcome:      outcome.String(),
			Dependencies: deps,
		})
	}

	return r
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult prints the load order with outcomes, then the diagnostics
func printResult(w io.Writer, processName string, result *chainloader.Result) {
	fmt.Fprintf(w, "Process: %s\n", processName)
	fmt.Fprintf(w, "Run:     %s\n", result.RunID)

	fmt.Fprintf(w, "\nLoad order (%d):\n", len(result.LoadOrder))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range result.LoadOrder {
		outcome, _ := result.Outcome(c.GUID)
		fmt.Fprintf(tw, "  %d.\t%s\t%s\t%s\t%s\n", i+1, c.GUID, c.Name, c.Version, outcome)
	}
	tw.Flush()

	printDiagnostics(w, result.Diagnostics.All())

	counts := result.OutcomeCounts()
	parts := make([]string, 0, len(counts))
	for outcome := chainloader.OutcomePending; outcome <= chainloader.OutcomeLoaded; outcome++ {
		if n := counts[outcome]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, outcome))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "nothing to load")
	}
	fmt.Fprintf(w, "\nSummary: %s\n", strings.Join(parts, ", "))
}

func printDiagnostics(w io.Writer, diags []plugins.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(w, "\nDiagnostics (%d):\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  %-8s %s\n", d.Severity, d.Message)
	}
}

// printCandidate prints everything extraction learned about one candidate
func printCandidate(w io.Writer, c *plugins.Candidate) {
	fmt.Fprintf(w, "%s\n", c.GUID)

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "  Name:\t%s\n", c.Name)
	fmt.Fprintf(tw, "  Version:\t%s\n", c.Version)
	fmt.Fprintf(tw, "  Type:\t%s\n", c.TypeName)
	fmt.Fprintf(tw, "  Location:\t%s\n", c.Location)
	fmt.Fprintf(tw, "  Module:\t%s\n", c.ModuleLocation)
	if !c.DeclaredHostVersion.IsZero() {
		fmt.Fprintf(tw, "  Host version:\t%s\n", c.DeclaredHostVersion)
	}
	if len(c.Processes) > 0 {
		fmt.Fprintf(tw, "  Processes:\t%s\n", strings.Join(c.ProcessNames(), ", "))
	}
	for _, d := range c.Dependencies {
		fmt.Fprintf(tw, "  Depends on:\t%s [%s]\n", d, d.Flags)
	}
	for _, inc := range c.Incompatibilities {
		fmt.Fprintf(tw, "  Incompatible:\t%s\n", inc.GUID)
	}
	tw.Flush()
}
