package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JadedBlueEyes/libretto/internal"
)

var (
	listSort string
	listJSON bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	initialStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	markerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rooms",
	Long:  `List every room in the database, sorted by display name or by latest activity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		list, err := a.service.RoomList(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list rooms: %w", err)
		}
		switch listSort {
		case "name":
		case "activity":
			list.SortByActivity()
		default:
			return fmt.Errorf("unsupported sort: %s (supported: name, activity)", listSort)
		}

		if listJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		displayRooms(cmd.OutOrStdout(), list, time.Now())
		return nil
	},
}

func displayRooms(out io.Writer, list *internal.RoomList, now time.Time) {
	if len(list.Rooms) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("No rooms found"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d room(s)", len(list.Rooms))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Room")+"\t"+titleStyle.Render("Events")+"\t"+titleStyle.Render("Active")+"\t"+titleStyle.Render("Flags")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, room := range list.Rooms {
		name := room.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}

		active := dateStyle.Render("—")
		if room.LastActivity > 0 {
			active = dateStyle.Render(humanize.RelTime(time.UnixMilli(room.LastActivity), now, "ago", "from now"))
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			initialStyle.Render(room.NameInitial()),
			name,
			idStyle.Render(string(room.ID)),
			countStyle.Render(humanize.Comma(int64(room.EventCount))),
			active,
			markerStyle.Render(roomFlags(room)))
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("Tip: view a room with `libretto show <room-id-or-alias>`"))
}

func roomFlags(room internal.RoomListEntry) string {
	var flags []string
	if room.HasUnread() {
		flags = append(flags, strconv.Itoa(room.UnreadCount)+" unread")
	}
	if room.IsEncrypted {
		flags = append(flags, "encrypted")
	}
	if room.IsDirect {
		flags = append(flags, "direct")
	}
	if room.State != "" && room.State != "join" {
		flags = append(flags, room.State)
	}
	return strings.Join(flags, ", ")
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listSort, "sort", "name", "Sort order (name, activity)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the room list as JSON")
}
