package frame

import "github.com/instrument-daq/frame-pipeline/internal/wire"

// Built is the result of evicting a partial frame: the aggregated payload
// plus observability facts about how it was assembled.
type Built struct {
	Frame    wire.AggregatedFrameMessage
	Complete bool
	Missing  []uint8
}

// buildFrame concatenates contributions in digitiser-ID ascending order and
// reuses the first-arriving contribution's metadata except VetoFlags, which
// is OR'd across every contributor.
func buildFrame(p *Partial) Built {
	ids := contributingIDs(p)

	total := 0
	for _, id := range ids {
		total += len(p.Contributions[id].Time)
	}

	out := wire.AggregatedFrameMessage{
		Metadata:     p.Metadata,
		DigitiserIDs: ids,
		Time:         make([]uint32, 0, total),
		Intensity:    make([]uint16, 0, total),
		Channel:      make([]uint32, 0, total),
	}

	var veto uint16
	for _, id := range ids {
		c := p.Contributions[id]
		out.Time = append(out.Time, c.Time...)
		out.Intensity = append(out.Intensity, c.Intensity...)
		out.Channel = append(out.Channel, c.Channel...)
		veto |= c.Metadata.VetoFlags
	}
	out.Metadata.VetoFlags = veto
	out.Complete = p.Complete()

	return Built{
		Frame:    out,
		Complete: out.Complete,
		Missing:  p.MissingIDs(),
	}
}
