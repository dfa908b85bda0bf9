package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/rdsops/snapshot-reconciler/internal/core/domain"
	"github.com/rdsops/snapshot-reconciler/internal/core/ports"
)

const ReporterTypeText = "text"

type Config struct {
	NoColor bool `mapstructure:"no_color"`
}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	if cfg.NoColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	return &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}, nil
}

func isTerminal(f *os.File) bool {
	stat, _ := f.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (r *Reporter) ReportResult(ctx context.Context, req domain.ReconcileRequest, result domain.ReconcileResult) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	changed := green("unchanged")
	if result.Changed {
		changed = yellow("changed")
	}

	fmt.Fprintf(r.writer, "Snapshot %s: desired state %q, %s\n", req.SnapshotID, req.State, changed)

	if !result.Present {
		fmt.Fprintf(r.writer, "Snapshot %s is absent.\n", req.SnapshotID)
		return nil
	}

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	record := result.Record
	fmt.Fprintf(tw, "ID\t%s\n", record.ID)
	fmt.Fprintf(tw, "Status\t%s\n", record.Status)
	fmt.Fprintf(tw, "Source instance\t%s\n", record.SourceInstanceID)
	fmt.Fprintf(tw, "Type\t%s\n", record.SnapshotType)
	fmt.Fprintf(tw, "Engine\t%s %s\n", record.Engine, record.EngineVersion)
	fmt.Fprintf(tw, "Availability zone\t%s\n", record.AvailabilityZone)
	fmt.Fprintf(tw, "Allocated storage\t%d GiB\n", record.AllocatedGiB)
	fmt.Fprintf(tw, "IOPS\t%d\n", record.IOPS)
	fmt.Fprintf(tw, "Encrypted\t%t\n", record.Encrypted)
	fmt.Fprintf(tw, "Created\t%s\n", formatTime(record.CreatedAt))
	if record.ARN != "" {
		fmt.Fprintf(tw, "ARN\t%s\n", record.ARN)
	}
	if record.AccountID != "" {
		fmt.Fprintf(tw, "Account\t%s\n", record.AccountID)
	}
	if len(record.Tags) > 0 {
		keys := make([]string, 0, len(record.Tags))
		for k := range record.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(tw, "Tag %s\t%s\n", k, record.Tags[k])
		}
	}

	return nil
}

func (r *Reporter) ReportFacts(ctx context.Context, facts domain.InstanceFacts) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	cyan := color.New(color.FgCyan).SprintFunc()

	if facts.InstanceFound {
		fmt.Fprintf(r.writer, "Instance %s: status %q, engine %s %s, az %s\n",
			cyan(facts.Instance.ID), facts.Instance.Status,
			facts.Instance.Engine, facts.Instance.EngineVersion, facts.Instance.AvailabilityZone)
	} else {
		fmt.Fprintln(r.writer, "Instance not found on the platform.")
	}

	if len(facts.Snapshots) == 0 {
		fmt.Fprintln(r.writer, "No manual snapshots found.")
		return nil
	}

	snapshots := make([]domain.SnapshotRecord, len(facts.Snapshots))
	copy(snapshots, facts.Snapshots)
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].ID < snapshots[j].ID
	})

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Snapshot\tStatus\tCreated\tZone\tIOPS\tEncrypted")
	fmt.Fprintln(tw, "--------\t------\t-------\t----\t----\t---------")
	for _, s := range snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n",
			s.ID, s.Status, formatTime(s.CreatedAt), s.AvailabilityZone, s.IOPS, s.Encrypted)
	}

	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
