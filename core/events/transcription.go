package events

const KindInterimUpdated Kind = "transcript.interim_updated"

type InterimUpdated struct {
	Base
	Transcript string
}

func (e InterimUpdated) String() string { return e.Transcript + "..." }

func NewInterimUpdated(transcript string) InterimUpdated {
	return InterimUpdated{Base: NewBase(KindInterimUpdated), Transcript: transcript}
}
