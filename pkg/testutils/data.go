package testutils

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/chatrag/chatrag/pkg/models"
)

// Transcript is a short exported chat with two sessions.
const Transcript = "[24/02/2019, 11:27:29] A: hi\n" +
	"[24/02/2019, 11:27:51] A: there\n" +
	"[01/03/2019, 18:53:16] A: later"

// FakeTranscript builds a transcript of n messages between two people. Gaps are
// drawn between 0 and maxGap minutes.
func FakeTranscript(n int, maxGap int) (string, []models.Message) {
	authors := []string{gofakeit.FirstName(), gofakeit.FirstName()}
	ts := time.Date(2022, 3, 1, 9, 0, 0, 0, time.UTC)

	msgs := make([]models.Message, n)
	lines := make([]string, n)
	for i := 0; i < n; i++ {
		ts = ts.Add(time.Duration(gofakeit.Number(0, maxGap)) * time.Minute)
		msgs[i] = models.Message{
			Timestamp: ts,
			Author:    authors[i%2],
			Text:      gofakeit.Sentence(gofakeit.Number(3, 12)),
		}
		lines[i] = msgs[i].String()
	}

	return strings.Join(lines, "\n"), msgs
}
