// Package recognition defines the contract between the speech engine and a
// platform recognizer. A recognizer delivers callbacks carrying result
// batches; the engine reconciles them into interim and final transcripts.
package recognition

// Alternative is one recognition hypothesis for a result. Alternatives are
// ordered by descending confidence; only the top alternative is used for
// transcript reconciliation.
type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is one recognized span of speech. Interim results are replaced in
// place by later callbacks until the recognizer marks them final.
type Result struct {
	Alternatives []Alternative
	IsFinal      bool
}

// Batch is the payload of a single recognition callback. Results holds every
// result of the current listening session in utterance order; StartIndex is
// the index of the first result that changed since the previous callback.
type Batch struct {
	Results    []Result
	StartIndex int
}

// Top returns the transcript of the highest-confidence alternative, or the
// empty string if the result carries no alternatives.
func (r Result) Top() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}
