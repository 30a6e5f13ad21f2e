package core

import "github.com/go-gl/mathgl/mgl32"

// Target is the subject that receives the character shadow.
type Target struct {
	Name     string
	Position mgl32.Vec3
	Radius   float32 // bounding sphere, used for frustum checks
}

// TargetProvider reports the currently active target, usually owned by a
// character controller. ok is false when there is no active target.
type TargetProvider interface {
	ActiveTarget() (target *Target, ok bool)
}

// StaticTarget is a TargetProvider over a single, optionally absent target.
type StaticTarget struct {
	Target *Target
}

func (s *StaticTarget) ActiveTarget() (*Target, bool) {
	if s == nil || s.Target == nil {
		return nil, false
	}
	return s.Target, true
}
