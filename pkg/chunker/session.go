package chunker

import (
	"regexp"
	"strings"
	"time"

	"github.com/chatrag/chatrag/pkg/models"
)

// DefaultSessionGap is the largest pause between two messages of one session.
const DefaultSessionGap = 20 * time.Minute

var messageLine = regexp.MustCompile(`^\[(\d{2}/\d{2}/\d{4}, \d{2}:\d{2}:\d{2})\] (.*?): (.*)$`)

// SessionSplitter groups transcript messages into sessions. A new session starts
// whenever a single gap between consecutive messages exceeds Gap. Each session
// becomes one chunk holding its messages in transcript line form.
type SessionSplitter struct {
	Gap time.Duration
}

func NewSessionSplitter(gap time.Duration) *SessionSplitter {
	if gap < 0 {
		gap = DefaultSessionGap
	}
	return &SessionSplitter{Gap: gap}
}

func (s *SessionSplitter) Split(text string) []models.Chunk {
	sessions := s.Sessions(ParseMessages(text))

	texts := make([]string, len(sessions))
	for i, session := range sessions {
		lines := make([]string, len(session))
		for j, m := range session {
			lines[j] = m.String()
		}
		texts[i] = strings.Join(lines, "\n")
	}

	return toChunks(texts)
}

// Sessions partitions msgs in order. Timestamps are compared pairwise, so a slow
// drift of short gaps never splits a session.
func (s *SessionSplitter) Sessions(msgs []models.Message) []models.Session {
	sessions := make([]models.Session, 0)
	if len(msgs) == 0 {
		return sessions
	}

	current := models.Session{msgs[0]}
	for _, m := range msgs[1:] {
		last := current[len(current)-1]
		if m.Timestamp.Sub(last.Timestamp) <= s.Gap {
			current = append(current, m)
			continue
		}
		sessions = append(sessions, current)
		current = models.Session{m}
	}

	return append(sessions, current)
}

// SessionTexts returns the bare message texts of each session.
func (s *SessionSplitter) SessionTexts(text string) [][]string {
	sessions := s.Sessions(ParseMessages(text))
	out := make([][]string, len(sessions))
	for i, session := range sessions {
		out[i] = make([]string, len(session))
		for j, m := range session {
			out[i][j] = m.Text
		}
	}
	return out
}

// ParseMessages parses "[DD/MM/YYYY, HH:MM:SS] Author: Text" lines. Lines that do not
// match, or carry an impossible date, are skipped.
func ParseMessages(text string) []models.Message {
	msgs := make([]models.Message, 0)

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		match := messageLine.FindStringSubmatch(line)
		if match == nil {
			log.Debugf("skipping transcript line %d: not a message", i+1)
			continue
		}

		ts, err := time.Parse(models.MessageTimeLayout, match[1])
		if err != nil {
			log.Debugf("skipping transcript line %d: %v", i+1, err)
			continue
		}

		msgs = append(msgs, models.Message{Timestamp: ts, Author: match[2], Text: match[3]})
	}

	return msgs
}
