package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/JadedBlueEyes/libretto/internal"
)

var (
	showLimit  int
	showFrom   string
	showJSON   bool
	showHidden bool
)

var (
	// Styles for show command
	roomHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1).
			MarginBottom(1)

	roomMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginBottom(1)

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true).
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true).
			Padding(0, 2)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	replyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 2)

	reactionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <room-id-or-alias>",
	Short: "Show one page of a room's timeline",
	Long: `Assemble and print one page of a room's timeline, oldest first.

The page starts at the newest event unless --from is given. When older
history exists, the token for the next page is printed at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		limit := showLimit
		if limit <= 0 {
			limit = cfg.Timeline.PageLimit
		}
		page, err := a.service.Timeline(cmd.Context(), args[0], showFrom, limit)
		if err != nil {
			return err
		}

		if showJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"room":            page.Room,
				"events":          page.Timeline.Events,
				"end":             page.Timeline.End,
				"end_of_timeline": page.Timeline.EndOfTimeline,
			})
		}
		displayPage(cmd.OutOrStdout(), page, showHidden)
		return nil
	},
}

func displayPage(out io.Writer, page *internal.RoomPage, withHidden bool) {
	entry := internal.NewRoomListEntry(page.Room)
	_, _ = fmt.Fprintln(out, roomHeaderStyle.Render(entry.Name))
	meta := []string{string(page.Room.ID)}
	if page.Room.CanonicalAlias != "" {
		meta = append(meta, string(page.Room.CanonicalAlias))
	}
	if page.Room.Encrypted {
		meta = append(meta, "encrypted")
	}
	_, _ = fmt.Fprintln(out, roomMetaStyle.Render(strings.Join(meta, " · ")))

	for _, ev := range page.Timeline.Events {
		if internal.IsHidden(ev.Content) && !withHidden {
			continue
		}
		displayEvent(out, ev)
	}

	if page.Timeline.EndOfTimeline {
		_, _ = fmt.Fprintln(out, roomMetaStyle.Render("Start of history"))
	} else {
		_, _ = fmt.Fprintln(out, roomMetaStyle.Render("Older history: --from "+page.Timeline.End))
	}
}

func displayEvent(out io.Writer, ev internal.TimelineEvent) {
	header := senderStyle.Render(internal.DisplayNameOf(ev.Sender, ev.SenderProfile)) +
		" " + timestampStyle.Render(internal.FormatTimestamp(ev.Timestamp))

	ml, isMsgLike := ev.Content.(*internal.MsgLikeContent)
	if !isMsgLike {
		_, _ = fmt.Fprintln(out, header)
		_, _ = fmt.Fprintln(out, messageContentStyle.Render(noticeStyle.Render(internal.SummarizeContent(ev.Content))))
		return
	}

	_, _ = fmt.Fprintln(out, header)
	if ml.InReplyTo != nil {
		quote := "↳ in reply to " + string(ml.InReplyTo.EventID)
		if replied := ml.InReplyTo.Event; replied != nil {
			first, _, _ := strings.Cut(internal.SummarizeContent(replied.Content), "\n")
			quote = "↳ " + internal.DisplayNameOf(replied.Sender, replied.SenderProfile) + ": " + first
		}
		_, _ = fmt.Fprintln(out, replyStyle.Render(quote))
	}
	if ml.ThreadRoot != "" {
		_, _ = fmt.Fprintln(out, replyStyle.Render("⤷ in thread "+string(ml.ThreadRoot)))
	}

	text := internal.SummarizeContent(ev.Content)
	if _, ok := ml.Kind.(internal.Message); !ok {
		text = noticeStyle.Render(text)
	}
	if internal.IsHidden(ev.Content) {
		text = noticeStyle.Render("(hidden)")
	}
	_, _ = fmt.Fprintln(out, messageContentStyle.Render(text))

	if len(ml.Reactions) > 0 {
		parts := make([]string, 0, len(ml.Reactions))
		for _, key := range ml.Reactions.Keys() {
			parts = append(parts, fmt.Sprintf("%s %d", key, ml.Reactions.Count(key)))
		}
		_, _ = fmt.Fprintln(out, reactionStyle.Render(strings.Join(parts, "  ")))
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Number of events to fetch (default from config)")
	showCmd.Flags().StringVar(&showFrom, "from", "", "Continuation token to page back from")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the page as JSON")
	showCmd.Flags().BoolVar(&showHidden, "hidden", false, "Include hidden items")
}
