package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/JadedBlueEyes/libretto/internal"
)

// MarkdownExporter exports rooms in Markdown format
type MarkdownExporter struct{}

// Export exports a room to Markdown format. Hidden items are skipped.
func (e *MarkdownExporter) Export(room *internal.RoomExport, w io.Writer) error {
	name := internal.NewRoomListEntry(room.Room).Name

	visible := make([]internal.TimelineEvent, 0, len(room.Events))
	for _, ev := range room.Events {
		if !internal.IsHidden(ev.Content) {
			visible = append(visible, ev)
		}
	}

	// Header
	_, _ = fmt.Fprintf(w, "# %s\n\n", name)
	_, _ = fmt.Fprintf(w, "**Room:** %s  \n", room.Room.ID)
	if room.Room.CanonicalAlias != "" {
		_, _ = fmt.Fprintf(w, "**Alias:** %s  \n", room.Room.CanonicalAlias)
	}
	if room.Room.Encrypted {
		_, _ = fmt.Fprintf(w, "**Encrypted:** yes  \n")
	}
	_, _ = fmt.Fprintf(w, "**Events:** %d\n\n", len(visible))
	if !room.EndOfTimeline {
		_, _ = fmt.Fprintf(w, "_History is incomplete._\n\n")
	}

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, ev := range visible {
		_, _ = fmt.Fprintf(w, "**%s** (%s)\n\n",
			escapeMarkdown(internal.DisplayNameOf(ev.Sender, ev.SenderProfile)),
			internal.FormatTimestamp(ev.Timestamp))

		if ml, ok := ev.Content.(*internal.MsgLikeContent); ok && ml.InReplyTo != nil {
			_, _ = fmt.Fprintf(w, "%s\n\n", replyQuote(ml.InReplyTo))
		}

		_, _ = fmt.Fprintf(w, "%s\n\n", escapeMarkdown(internal.SummarizeContent(ev.Content)))

		if ml, ok := ev.Content.(*internal.MsgLikeContent); ok && len(ml.Reactions) > 0 {
			_, _ = fmt.Fprintf(w, "%s\n\n", reactionLine(ml.Reactions))
		}

		if i < len(visible)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func replyQuote(reply *internal.InReplyToDetails) string {
	if reply.Event == nil {
		return fmt.Sprintf("> In reply to %s", reply.EventID)
	}
	who := internal.DisplayNameOf(reply.Event.Sender, reply.Event.SenderProfile)
	text := internal.SummarizeContent(reply.Event.Content)
	first, _, _ := strings.Cut(text, "\n")
	return fmt.Sprintf("> **%s:** %s", escapeMarkdown(who), escapeMarkdown(first))
}

func reactionLine(reactions internal.ReactionsByKeyBySender) string {
	parts := make([]string, 0, len(reactions))
	for _, key := range reactions.Keys() {
		parts = append(parts, fmt.Sprintf("%s %d", key, reactions.Count(key)))
	}
	return "Reactions: " + strings.Join(parts, " · ")
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
