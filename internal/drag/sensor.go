package drag

// DefaultThreshold is the distance, in terminal cells, a pressed pointer
// must travel before a drag starts.
const DefaultThreshold = 2

// Point is a pointer position in cells.
type Point struct {
	X, Y int
}

// Sensor arms on a press over a task and activates once the pointer has
// moved at least the threshold, so plain clicks never drag.
type Sensor struct {
	threshold int
	armed     bool
	active    bool
	origin    Point
	taskID    string
}

// NewSensor returns a sensor with the given threshold. Non-positive values
// use DefaultThreshold.
func NewSensor(threshold int) *Sensor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Sensor{threshold: threshold}
}

// Threshold returns the activation distance.
func (s *Sensor) Threshold() int { return s.threshold }

// Press arms the sensor at p over taskID. A press over no task disarms it.
func (s *Sensor) Press(p Point, taskID string) {
	s.armed = taskID != ""
	s.active = false
	s.origin = p
	s.taskID = taskID
}

// Move reports the task to start dragging the first time the pointer moves
// past the threshold since the press.
func (s *Sensor) Move(p Point) (string, bool) {
	if !s.armed || s.active {
		return "", false
	}
	if distance(s.origin, p) < s.threshold {
		return "", false
	}
	s.active = true
	return s.taskID, true
}

// Active reports whether the current press turned into a drag.
func (s *Sensor) Active() bool { return s.active }

// Release ends the press. It reports whether a drag was active.
func (s *Sensor) Release() bool {
	wasActive := s.active
	s.armed = false
	s.active = false
	s.taskID = ""
	return wasActive
}

// distance is the Chebyshev distance between a and b.
func distance(a, b Point) int {
	return max(abs(a.X-b.X), abs(a.Y-b.Y))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
