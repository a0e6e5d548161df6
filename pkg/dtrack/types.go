package dtrack

// QualityNotTracked is the quality value carried by entities that are known but not tracked.
const QualityNotTracked = -1.0

// Limits of the wire format.
const (
	MaxFlyStickButtons  = 16
	MaxFlyStickJoystick = 8
	MaxMeaToolButtons   = 1
	MaxHandFingers      = 5

	// Upper bounds on ids and counts accepted from a datagram. Frames beyond them are
	// rejected instead of growing the entity arrays.
	MaxBodies    = 1024
	MaxFlySticks = 256
	MaxMeaTools  = 256
	MaxHands     = 256
	MaxMarkers   = 4096
)

// TrackState tells whether an entity was seen in the latest frame.
type TrackState uint8

const (
	// NotTracked marks an entity that is known (calibrated or seen before) but absent from the
	// latest frame.
	NotTracked TrackState = iota
	// Tracked marks an entity with valid pose data in the latest frame.
	Tracked
)

func (s TrackState) String() string {
	if s == Tracked {
		return "tracked"
	}
	return "not tracked"
}

func stateFor(quality float64) TrackState {
	if quality == QualityNotTracked {
		return NotTracked
	}
	return Tracked
}

// Pose is a location in millimetres plus a 3x3 rotation matrix stored column-major
// (rot[0..2] is the first column).
type Pose struct {
	Loc [3]float64
	Rot [9]float64
}

// Body is a standard 6DOF rigid body.
type Body struct {
	ID      int
	Quality float64
	State   TrackState
	Pose
}

// IsTracked reports whether the body carries pose data for the current frame.
func (b Body) IsTracked() bool { return b.State == Tracked }

// FlyStickFormat identifies the wire variant a flystick was decoded from.
type FlyStickFormat uint8

const (
	FlyStickLegacy FlyStickFormat = iota + 1 // "6df"
	FlyStickV2                               // "6df2"
)

// FlyStick is a tracked input device with buttons and joystick axes.
type FlyStick struct {
	ID          int
	Quality     float64
	State       TrackState
	Format      FlyStickFormat
	NumButton   int
	Button      [MaxFlyStickButtons]bool
	NumJoystick int
	Joystick    [MaxFlyStickJoystick]float64
	Pose
}

// IsTracked reports whether the flystick carries pose data for the current frame.
func (f FlyStick) IsTracked() bool { return f.State == Tracked }

// MeaTool is a measurement tool with a single button.
type MeaTool struct {
	ID        int
	Quality   float64
	State     TrackState
	NumButton int
	Button    [MaxMeaToolButtons]bool
	Pose
}

// IsTracked reports whether the tool carries pose data for the current frame.
func (m MeaTool) IsTracked() bool { return m.State == Tracked }

// Hand sides.
const (
	HandLeft  = 0
	HandRight = 1
)

// Finger holds the pose and phalanx geometry of one tracked finger.
type Finger struct {
	Pose
	RadiusTip     float64
	LengthPhalanx [3]float64
	AnglePhalanx  [2]float64
}

// Hand is a fingertracking hand.
type Hand struct {
	ID      int
	Quality float64
	State   TrackState
	LR      int
	NFinger int
	Finger  [MaxHandFingers]Finger
	Pose
}

// IsTracked reports whether the hand carries pose data for the current frame.
func (h Hand) IsTracked() bool { return h.State == Tracked }

// Marker is a single reflective marker. Markers are addressed by index, not id.
type Marker struct {
	ID      int
	Quality float64
	Loc     [3]float64
}
