package speech

import (
	"strings"

	"github.com/voco-dev/voco/core/recognition"
)

// Segment is the engine's view of one recognition callback after
// reconciliation. InterimTranscript covers every result in the batch from
// the start index on, final or not; IsFinal reports whether the batch sealed
// at least one result.
type Segment struct {
	InterimTranscript string
	IsFinal           bool
}

// reconcile folds one result batch into a segment and, when the batch
// contains final results, the accumulated final transcript. The interim
// transcript joins the trimmed top transcripts with single spaces; the final
// transcript collects only the final results, so a batch mixing interim and
// final text never leaks interim text into the final transcript.
func reconcile(batch recognition.Batch) (segment Segment, finalTranscript string) {
	start := batch.StartIndex
	if start < 0 {
		start = 0
	}
	if start > len(batch.Results) {
		start = len(batch.Results)
	}

	interim := make([]string, 0, len(batch.Results)-start)
	final := strings.Builder{}
	isFinal := false
	for _, result := range batch.Results[start:] {
		if result.IsFinal {
			isFinal = true
		}

		transcript := strings.TrimSpace(result.Top())
		if transcript == "" {
			continue
		}

		interim = append(interim, transcript)
		if result.IsFinal {
			final.WriteString(transcript)
			final.WriteString(" ")
		}
	}

	return Segment{
		InterimTranscript: strings.Join(interim, " "),
		IsFinal:           isFinal,
	}, strings.TrimSpace(final.String())
}
