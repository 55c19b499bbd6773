package preview

import (
	"regexp"
	"strings"
)

// youtubeLink matches full and short YouTube links and captures the video id.
var youtubeLink = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)([\w-]+)`)

// botMessage builds a bot message, splitting off the first YouTube link.
// The remaining text becomes the caption.
func botMessage(text string) Message {
	m := youtubeLink.FindStringSubmatchIndex(text)
	if m == nil {
		return Message{Speaker: SpeakerBot, Text: text}
	}
	caption := strings.TrimSpace(text[:m[0]] + text[m[1]:])
	return Message{Speaker: SpeakerBot, Text: caption, VideoID: text[m[2]:m[3]]}
}
