package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/artpar/runway/internal/core/domain"
	"github.com/cheynewallace/tabby"
	"gopkg.in/yaml.v3"
)

// OutputFormat is the output format of a read command.
type OutputFormat string

const (
	// OutputFormatTable is a human-readable table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON is machine-readable JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is machine-readable YAML
	OutputFormatYAML OutputFormat = "yaml"
)

// parseOutputFormat validates a --output flag value.
func parseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q (want table, json or yaml)", ErrInvalidInput, s)
	}
}

// printData writes o as JSON or YAML.
func printData(w io.Writer, format OutputFormat, o any) error {
	switch format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(o, "", "  ")
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		// json.MarshalIndent doesn't add the final newline
		_, err = io.WriteString(w, "\n")
		return err
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(o); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func newTable(w io.Writer) *tabby.Tabby {
	return tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
}

// =============================================================================
// Views
// =============================================================================

// trafficView is the printable form of the live traffic table.
type trafficView struct {
	Service    string              `json:"service" yaml:"service"`
	Generation string              `json:"generation" yaml:"generation"`
	Traffic    domain.TrafficTable `json:"traffic" yaml:"traffic"`
}

func printTraffic(w io.Writer, format OutputFormat, view trafficView) error {
	if format != OutputFormatTable {
		return printData(w, format, view)
	}

	t := newTable(w)
	t.AddHeader("REVISION", "PERCENT")
	for _, target := range view.Traffic {
		t.AddLine(target.RevisionID, fmt.Sprintf("%d%%", target.Percent))
	}
	t.Print()
	return nil
}

// revisionView is a catalog entry with its current share of traffic.
type revisionView struct {
	domain.Revision `yaml:",inline"`
	Percent         int `json:"percent" yaml:"percent"`
}

func printRevisions(w io.Writer, format OutputFormat, catalog domain.Catalog) error {
	views := make([]revisionView, 0, catalog.Len())
	for _, rev := range catalog.Revisions {
		views = append(views, revisionView{Revision: rev, Percent: catalog.Traffic.Percent(rev.ID)})
	}
	if format != OutputFormatTable {
		return printData(w, format, views)
	}

	t := newTable(w)
	t.AddHeader("REVISION", "LABEL", "READY", "CREATED", "TRAFFIC")
	for _, v := range views {
		share := "-"
		if v.Percent > 0 {
			share = fmt.Sprintf("%d%%", v.Percent)
		}
		t.AddLine(v.ID, v.Label, v.Ready, formatTime(v.CreatedAt), share)
	}
	t.Print()
	return nil
}

// deployView summarizes a deploy for the pipeline log.
type deployView struct {
	RolloutID string                `json:"rollout_id" yaml:"rollout_id"`
	Service   string                `json:"service" yaml:"service"`
	Decision  string                `json:"decision" yaml:"decision"`
	Outcome   domain.RolloutOutcome `json:"outcome" yaml:"outcome"`
	Traffic   domain.TrafficTable   `json:"traffic" yaml:"traffic"`
	Previous  domain.TrafficTable   `json:"previous,omitempty" yaml:"previous,omitempty"`
	Image     string                `json:"image,omitempty" yaml:"image,omitempty"`
}

func printDeploy(w io.Writer, format OutputFormat, view deployView) error {
	if format != OutputFormatTable {
		return printData(w, format, view)
	}

	t := newTable(w)
	t.AddLine("Rollout", view.RolloutID)
	t.AddLine("Service", view.Service)
	t.AddLine("Decision", view.Decision)
	t.AddLine("Outcome", view.Outcome)
	t.AddLine("Traffic", view.Traffic.String())
	if len(view.Previous) > 0 {
		t.AddLine("Previous", view.Previous.String())
	}
	if view.Image != "" {
		t.AddLine("Image", view.Image)
	}
	t.Print()
	return nil
}

func printHistory(w io.Writer, format OutputFormat, records []domain.RolloutRecord) error {
	if format != OutputFormatTable {
		return printData(w, format, records)
	}

	t := newTable(w)
	t.AddHeader("CREATED", "LATEST", "PINNED", "TRAFFIC", "OUTCOME", "ID")
	for _, r := range records {
		pinned := r.PinnedRevisionID
		if pinned == "" {
			pinned = "-"
		}
		t.AddLine(formatTime(r.CreatedAt), r.LatestRevisionID, pinned, r.Traffic.String(), r.Outcome, r.ID)
	}
	t.Print()
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
