package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jbweber/bedrock/api/v1alpha1"
	"github.com/jbweber/bedrock/internal/provision"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header rows.
	NoHeaders bool
}

// FormatLayout formats a StorageLayout as a summary line followed by its
// partition table. Observed partitions from status are shown when present,
// otherwise the desired partitions from spec.
func (f *TableFormatter) FormatLayout(sl *v1alpha1.StorageLayout) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	phase := string(sl.Status.Phase)
	if phase == "" {
		phase = "-"
	}
	capacity := "-"
	if sl.Status.CapacityBytes > 0 {
		capacity = humanize.IBytes(sl.Status.CapacityBytes)
	}
	age := "-"
	if !sl.CreationTimestamp.IsZero() {
		age = formatAge(time.Since(sl.CreationTimestamp.Time))
	}

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tTOPOLOGY\tAUTO-PARTITION\tDEVELOPER\tPHASE\tCAPACITY\tAGE")
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%s\t%s\t%s\n",
		sl.Name, sl.GetTopology(), sl.IsAutoPartition(), sl.IsDeveloperMode(), phase, capacity, age)
	_ = w.Flush()

	buf.WriteString("\n")

	w = tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "PARTITION\tSTART\tSIZE\tMOUNT POINT\tMOUNTED\tREFORMATS")
	}

	if len(sl.Status.Partitions) > 0 {
		for _, p := range sl.Status.Partitions {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\n",
				partitionName(p.Number), p.Start.Human(), sizeOrWhole(p.Number, p.Size), p.MountPoint, p.Mounted, p.Reformats)
		}
	} else if sl.GetTopology() == v1alpha1.TopologyNone {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			partitionName(0), "0 B", "whole device", sl.GetMountPoint(), "-", "-")
	} else {
		for _, p := range sl.Spec.Partitions {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				partitionName(p.Number), p.Start.Human(), p.Size.Human(), p.MountPoint, "-", "-")
		}
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatItems formats provisioning records as a table.
func (f *TableFormatter) FormatItems(items []provision.Item) (string, error) {
	if len(items) == 0 {
		return "No credentials stored\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "KIND\tSIZE\tFINGERPRINT\tID\tAGE")
	}
	for _, it := range items {
		age := "-"
		if !it.CreatedAt.IsZero() {
			age = formatAge(time.Since(it.CreatedAt))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			it.Kind, humanize.IBytes(uint64(it.Size)), it.Fingerprint, it.ID, age)
	}

	_ = w.Flush()
	return buf.String(), nil
}

func partitionName(number int) string {
	if number == 0 {
		return "whole"
	}
	return fmt.Sprintf("%d", number)
}

func sizeOrWhole(number int, size v1alpha1.ByteSize) string {
	if number == 0 && size == 0 {
		return "whole device"
	}
	return size.Human()
}

// formatAge formats a duration as a short age string: "5s", "2m", "3h",
// "4d", "2w" or "1y".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}
	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}
	if weeks := days / 7; weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}
	if years := days / 365; years > 0 {
		return fmt.Sprintf("%dy", years)
	}
	return fmt.Sprintf("%dd", days)
}
