package prosody

import (
	"github.com/RyanBlaney/sonido-delivery/transcript"
)

// Segment is a run of words without an internal silence of segment-gap
// length or more.
type Segment struct {
	StartSec float64 `json:"startSec"`
	EndSec   float64 `json:"endSec"`
	Words    int     `json:"words"`
}

// SegmentWords splits start-sorted timed words into segments. A new segment
// starts whenever start − previous end ≥ gapSec. The last segment always
// closes at the end of the last word.
func SegmentWords(words []transcript.TimedWord, gapSec float64) []Segment {
	segments := []Segment{}
	if len(words) == 0 {
		return segments
	}

	cur := Segment{StartSec: words[0].StartSec, EndSec: words[0].EndSec, Words: 1}
	for _, w := range words[1:] {
		if w.StartSec-cur.EndSec >= gapSec {
			segments = append(segments, cur)
			cur = Segment{StartSec: w.StartSec, EndSec: w.EndSec, Words: 1}
			continue
		}
		cur.EndSec = max(cur.EndSec, w.EndSec)
		cur.Words++
	}
	return append(segments, cur)
}
