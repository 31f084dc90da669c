// internal/model/segment.go
package model

// Segment is the audience category driving template and recipient selection.
type Segment string

const (
	SegmentNewLead    Segment = "new_lead"
	SegmentInProcess  Segment = "in_process"
	SegmentClosedDeal Segment = "closed_deal"
	SegmentAbandoned  Segment = "abandoned"
)

var Segments = []Segment{SegmentNewLead, SegmentInProcess, SegmentClosedDeal, SegmentAbandoned}

func (s Segment) Valid() bool {
	for _, known := range Segments {
		if s == known {
			return true
		}
	}
	return false
}
