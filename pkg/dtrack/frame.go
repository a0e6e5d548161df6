package dtrack

import (
	"fmt"
	"strings"

	"monolithgo/pkg/protocol"
)

// Frame is the decoded content of one tracking datagram.
//
// Bodies and Hands are indexed by id and never shrink between frames; ids that were not sent
// are present with State NotTracked. FlySticks and MeaTools are sized by the count their line
// announces. Markers are replaced completely by each frame.
type Frame struct {
	Counter   uint32
	Timestamp float64 // -1 if the frame carried no timestamp
	Bodies    []Body
	FlySticks []FlyStick
	MeaTools  []MeaTool
	Hands     []Hand
	Markers   []Marker
}

// ParseFrame decodes one datagram. prev supplies the entity arrays that persist across frames
// and may be nil.
func ParseFrame(data string, prev *Frame) (*Frame, error) {
	f := &Frame{}
	if err := f.Parse(data, prev); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse overwrites f with the content of data. On error f holds partial data and must be
// discarded; prev is never modified. f and prev must not be the same frame.
func (f *Frame) Parse(data string, prev *Frame) error {
	f.reset(prev)

	p := frameParser{f: f, bodyCal: -1, handCal: -1}
	pos := 0
	for {
		end := protocol.LineEnd(data, pos)
		if err := p.line(data[pos:end]); err != nil {
			return err
		}
		if end < len(data) && data[end] == 0 {
			break
		}
		next, ok := protocol.NextLine(data, end)
		if !ok {
			break
		}
		pos = next
	}

	// '6dcal' counts flysticks and measurement tools too.
	if p.bodyCal >= 0 {
		n := p.bodyCal - p.numFlyStickLegacy - p.numMeaTool
		if n > MaxBodies {
			return fmt.Errorf("%w: %d calibrated bodies exceed %d", ErrParse, n, MaxBodies)
		}
		f.growBodies(n)
	}
	if p.handCal >= 0 {
		f.growHands(p.handCal)
	}
	return nil
}

// reset prepares f for a new frame, keeping its storage. Every id-addressed entity known from
// prev starts out as not tracked.
func (f *Frame) reset(prev *Frame) {
	f.Counter = 0
	f.Timestamp = -1
	f.Bodies = f.Bodies[:0]
	f.FlySticks = f.FlySticks[:0]
	f.MeaTools = f.MeaTools[:0]
	f.Hands = f.Hands[:0]
	f.Markers = f.Markers[:0]
	if prev == nil {
		return
	}
	f.growBodies(len(prev.Bodies))
	f.growHands(len(prev.Hands))
	f.resizeFlySticks(len(prev.FlySticks))
	f.resizeMeaTools(len(prev.MeaTools))
}

func (f *Frame) growBodies(n int) {
	for i := len(f.Bodies); i < n; i++ {
		f.Bodies = append(f.Bodies, Body{ID: i, Quality: QualityNotTracked})
	}
}

func (f *Frame) growHands(n int) {
	for i := len(f.Hands); i < n; i++ {
		f.Hands = append(f.Hands, Hand{ID: i, Quality: QualityNotTracked})
	}
}

func (f *Frame) resizeFlySticks(n int) {
	f.FlySticks = f.FlySticks[:0]
	for i := 0; i < n; i++ {
		f.FlySticks = append(f.FlySticks, FlyStick{ID: i, Quality: QualityNotTracked})
	}
}

func (f *Frame) resizeMeaTools(n int) {
	f.MeaTools = f.MeaTools[:0]
	for i := 0; i < n; i++ {
		f.MeaTools = append(f.MeaTools, MeaTool{ID: i, Quality: QualityNotTracked})
	}
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() Frame {
	return Frame{
		Counter:   f.Counter,
		Timestamp: f.Timestamp,
		Bodies:    append([]Body(nil), f.Bodies...),
		FlySticks: append([]FlyStick(nil), f.FlySticks...),
		MeaTools:  append([]MeaTool(nil), f.MeaTools...),
		Hands:     append([]Hand(nil), f.Hands...),
		Markers:   append([]Marker(nil), f.Markers...),
	}
}

type frameParser struct {
	f   *Frame
	blk protocol.Block

	bodyCal           int
	handCal           int
	numFlyStickLegacy int
	numMeaTool        int
}

func lineErr(keyword string, err error) error {
	return fmt.Errorf("line %q: %w", keyword, err)
}

func (p *frameParser) line(line string) error {
	keyword, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil
	}

	var err error
	switch keyword {
	case "fr":
		p.f.Counter, _, err = protocol.Uint(rest)
	case "ts":
		p.f.Timestamp, _, err = protocol.Float64(rest)
	case "6dcal":
		p.bodyCal, err = p.count(rest, MaxBodies+MaxFlySticks+MaxMeaTools)
	case "6d":
		err = p.bodies(rest)
	case "6df":
		err = p.flySticksLegacy(rest)
	case "6df2":
		err = p.flySticksV2(rest)
	case "6dmt":
		err = p.meaTools(rest)
	case "glcal":
		p.handCal, err = p.count(rest, MaxHands)
	case "gl":
		err = p.hands(rest)
	case "3d":
		err = p.markers(rest)
	default:
		// Unknown lines are reserved for newer controllers.
		return nil
	}
	if err != nil {
		return lineErr(keyword, err)
	}
	return nil
}

func (p *frameParser) count(s string, limit int) (int, error) {
	n, _, err := p.countRest(s, limit)
	return n, err
}

func (p *frameParser) countRest(s string, limit int) (int, string, error) {
	n, rest, err := protocol.Int(s)
	if err != nil {
		return 0, s, err
	}
	if n < 0 {
		return 0, s, fmt.Errorf("%w: negative count %d", ErrParse, n)
	}
	if n > limit {
		return 0, s, fmt.Errorf("%w: count %d exceeds %d", ErrParse, n, limit)
	}
	return n, rest, nil
}

// header reads a leading "[id quality ...]" block with the given format, which must start
// with "id". Ids at or above limit are rejected.
func (p *frameParser) header(s, format string, limit int) (int, float64, string, error) {
	p.blk.Reset()
	rest, err := protocol.ScanBlock(s, format, &p.blk)
	if err != nil {
		return 0, 0, s, err
	}
	id, q := p.blk.Ints[0], p.blk.Reals[0]
	if id < 0 {
		return 0, 0, s, fmt.Errorf("%w: negative id %d", ErrParse, id)
	}
	if id >= limit {
		return 0, 0, s, fmt.Errorf("%w: id %d out of range, limit %d", ErrParse, id, limit)
	}
	if q < 0 && q != QualityNotTracked {
		return 0, 0, s, fmt.Errorf("%w: invalid quality %v", ErrParse, q)
	}
	return id, q, rest, nil
}

func (p *frameParser) reals(s, format string, dst []float64) (string, error) {
	p.blk.Reset()
	rest, err := protocol.ScanBlock(s, format, &p.blk)
	if err != nil {
		return s, err
	}
	copy(dst, p.blk.Reals)
	return rest, nil
}

func (p *frameParser) pose(s string, dst *Pose) (string, error) {
	rest, err := p.reals(s, "ddd", dst.Loc[:])
	if err != nil {
		return s, err
	}
	return p.reals(rest, "ddddddddd", dst.Rot[:])
}

func (p *frameParser) bodies(s string) error {
	n, s, err := p.countRest(s, MaxBodies)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		id, q, rest, err := p.header(s, "id", MaxBodies)
		if err != nil {
			return err
		}
		p.f.growBodies(id + 1)
		b := &p.f.Bodies[id]
		b.ID, b.Quality, b.State = id, q, stateFor(q)
		if s, err = p.pose(rest, &b.Pose); err != nil {
			return err
		}
	}
	return nil
}

func (p *frameParser) flySticksLegacy(s string) error {
	n, s, err := p.countRest(s, MaxFlySticks)
	if err != nil {
		return err
	}
	p.numFlyStickLegacy = n
	p.f.resizeFlySticks(n)
	for i := 0; i < n; i++ {
		id, q, rest, err := p.header(s, "idi", MaxFlySticks)
		if err != nil {
			return err
		}
		if id != i {
			return fmt.Errorf("%w: flystick id %d out of order, want %d", ErrParse, id, i)
		}
		fs := &p.f.FlySticks[i]
		fs.Quality, fs.State = q, stateFor(q)
		LegacyWand{Bits: p.blk.Ints[1]}.apply(fs)
		if s, err = p.pose(rest, &fs.Pose); err != nil {
			return err
		}
	}
	return nil
}

func (p *frameParser) flySticksV2(s string) error {
	ncal, s, err := p.countRest(s, MaxFlySticks)
	if err != nil {
		return err
	}
	n, s, err := p.countRest(s, MaxFlySticks)
	if err != nil {
		return err
	}
	if n > ncal {
		return fmt.Errorf("%w: %d flysticks exceed %d calibrated", ErrParse, n, ncal)
	}
	p.f.resizeFlySticks(ncal)
	for i := 0; i < n; i++ {
		id, q, rest, err := p.header(s, "idii", MaxFlySticks)
		if err != nil {
			return err
		}
		if id != i {
			return fmt.Errorf("%w: flystick id %d out of order, want %d", ErrParse, id, i)
		}
		nb, nj := p.blk.Ints[1], p.blk.Ints[2]
		if nb < 0 || nb > MaxFlyStickButtons {
			return fmt.Errorf("%w: flystick %d has %d buttons", ErrParse, id, nb)
		}
		if nj < 0 || nj > MaxFlyStickJoystick {
			return fmt.Errorf("%w: flystick %d has %d joystick axes", ErrParse, id, nj)
		}

		fs := &p.f.FlySticks[i]
		fs.Quality, fs.State = q, stateFor(q)
		if rest, err = p.pose(rest, &fs.Pose); err != nil {
			return err
		}

		nw := buttonWordCount(nb)
		format := strings.Repeat("i", nw) + strings.Repeat("d", nj)
		p.blk.Reset()
		if s, err = protocol.ScanBlock(rest, format, &p.blk); err != nil {
			return err
		}
		WandV2{
			NumButtons: nb,
			Words:      p.blk.Ints,
			Axes:       p.blk.Reals,
		}.apply(fs)
	}
	return nil
}

func (p *frameParser) meaTools(s string) error {
	n, s, err := p.countRest(s, MaxMeaTools)
	if err != nil {
		return err
	}
	p.numMeaTool = n
	p.f.resizeMeaTools(n)
	for i := 0; i < n; i++ {
		id, q, rest, err := p.header(s, "idi", MaxMeaTools)
		if err != nil {
			return err
		}
		if id != i {
			return fmt.Errorf("%w: measurement tool id %d out of order, want %d", ErrParse, id, i)
		}
		mt := &p.f.MeaTools[i]
		mt.Quality, mt.State = q, stateFor(q)
		mt.NumButton = MaxMeaToolButtons
		mt.Button[0] = p.blk.Ints[1]&0x01 != 0
		if s, err = p.pose(rest, &mt.Pose); err != nil {
			return err
		}
	}
	return nil
}

func (p *frameParser) hands(s string) error {
	n, s, err := p.countRest(s, MaxHands)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		id, q, rest, err := p.header(s, "idii", MaxHands)
		if err != nil {
			return err
		}
		lr, nf := p.blk.Ints[1], p.blk.Ints[2]
		if nf < 0 || nf > MaxHandFingers {
			return fmt.Errorf("%w: hand %d has %d fingers", ErrParse, id, nf)
		}

		p.f.growHands(id + 1)
		h := &p.f.Hands[id]
		*h = Hand{ID: id, Quality: q, State: stateFor(q), LR: lr, NFinger: nf}
		if rest, err = p.pose(rest, &h.Pose); err != nil {
			return err
		}

		var geom [6]float64
		for j := 0; j < nf; j++ {
			fg := &h.Finger[j]
			if rest, err = p.pose(rest, &fg.Pose); err != nil {
				return err
			}
			if rest, err = p.reals(rest, "dddddd", geom[:]); err != nil {
				return err
			}
			fg.RadiusTip = geom[0]
			fg.LengthPhalanx[0] = geom[1]
			fg.AnglePhalanx[0] = geom[2]
			fg.LengthPhalanx[1] = geom[3]
			fg.AnglePhalanx[1] = geom[4]
			fg.LengthPhalanx[2] = geom[5]
		}
		s = rest
	}
	return nil
}

func (p *frameParser) markers(s string) error {
	n, s, err := p.countRest(s, MaxMarkers)
	if err != nil {
		return err
	}
	p.f.Markers = p.f.Markers[:0]
	for i := 0; i < n; i++ {
		p.blk.Reset()
		rest, err := protocol.ScanBlock(s, "id", &p.blk)
		if err != nil {
			return err
		}
		m := Marker{ID: p.blk.Ints[0], Quality: p.blk.Reals[0]}
		if s, err = p.reals(rest, "ddd", m.Loc[:]); err != nil {
			return err
		}
		p.f.Markers = append(p.f.Markers, m)
	}
	return nil
}
