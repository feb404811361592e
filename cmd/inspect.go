package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JadedBlueEyes/libretto/internal"
)

var inspectFormat string

// inspectReport is what inspect prints for a room
type inspectReport struct {
	Room       internal.RoomInfo `json:"room"`
	EventTypes map[string]int    `json:"event_types"`
	ItemKinds  map[string]int    `json:"item_kinds"`
	Items      int               `json:"items"`
	Edited     int               `json:"edited"`
	Reactions  int               `json:"reactions"`
	Replies    int               `json:"replies"`
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <room-id-or-alias>",
	Short: "Show event and timeline statistics for a room",
	Long: `Inspect a stored room: how many events of each type it holds, and what
its assembled timeline looks like after classification and folding.

Examples:
  libretto inspect '#lounge:example.org'
  libretto inspect '!abc:example.org' --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctx := cmd.Context()
		history, err := a.service.History(ctx, args[0], cfg.Timeline.PageLimit, nil)
		if err != nil {
			return err
		}
		counts, err := a.store.EventTypeCounts(ctx, history.Room.ID)
		if err != nil {
			return err
		}
		report := buildReport(history, counts)

		switch inspectFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		case "text":
			displayReport(cmd.OutOrStdout(), report)
			return nil
		default:
			return fmt.Errorf("unsupported format: %s (supported: text, json)", inspectFormat)
		}
	},
}

func buildReport(history *internal.RoomExport, counts map[string]int) *inspectReport {
	report := &inspectReport{
		Room:       history.Room,
		EventTypes: counts,
		ItemKinds:  make(map[string]int),
		Items:      len(history.Events),
	}
	for _, ev := range history.Events {
		report.ItemKinds[internal.ItemKind(ev.Content)]++
		if msg, ok := internal.AsMessage(ev.Content); ok && msg.Edited {
			report.Edited++
		}
		if ml, ok := ev.Content.(*internal.MsgLikeContent); ok {
			report.Reactions += ml.Reactions.Total()
			if ml.InReplyTo != nil {
				report.Replies++
			}
		}
	}
	return report
}

func displayReport(out io.Writer, report *inspectReport) {
	_, _ = fmt.Fprintln(out, headerStyle.Render(internal.NewRoomListEntry(report.Room).Name))
	_, _ = fmt.Fprintln(out, idStyle.Render(string(report.Room.ID)))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Event type")+"\t"+titleStyle.Render("Count")+"\t")
	for _, key := range sortedKeys(report.EventTypes) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t\n", key, countStyle.Render(humanize.Comma(int64(report.EventTypes[key]))))
	}
	_, _ = fmt.Fprintln(w, "\t\t")
	_, _ = fmt.Fprintln(w, titleStyle.Render("Item kind")+"\t"+titleStyle.Render("Count")+"\t")
	for _, key := range sortedKeys(report.ItemKinds) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t\n", key, countStyle.Render(humanize.Comma(int64(report.ItemKinds[key]))))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "%s items, %d edited, %d reactions, %d replies\n",
		humanize.Comma(int64(report.Items)), report.Edited, report.Reactions, report.Replies)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
}
