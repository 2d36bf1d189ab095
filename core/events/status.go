package events

const KindStatusChanged Kind = "status.changed"

type StatusChanged struct {
	Base
	Status string
}

func (e StatusChanged) String() string { return string(e.Status) }

func NewStatusChanged(status string) StatusChanged {
	return StatusChanged{Base: NewBase(KindStatusChanged), Status: status}
}
