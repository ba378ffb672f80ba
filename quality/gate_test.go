package quality

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testThresholds() Thresholds {
	return Thresholds{
		MaxYaw:              20,
		MaxPitch:            20,
		MaxRoll:             20,
		MinFaceSidePx:       150,
		FrameMarginPx:       20,
		MaxFaceAreaFraction: 0.35,
		MaxHints:            2,
	}
}

func centered() Observation {
	return Observation{Box: image.Rect(220, 140, 420, 340)}
}

func TestEvaluatePasses(t *testing.T) {
	a := testThresholds().Evaluate([]Observation{centered()}, 640, 480)

	assert.True(t, a.Passed)
	assert.Empty(t, a.Violations)
	assert.Equal(t, []string{HintHoldStill}, a.Hints)
}

func TestEvaluateFaceCount(t *testing.T) {
	th := testThresholds()

	none := th.Evaluate(nil, 640, 480)
	assert.False(t, none.Passed)
	assert.Equal(t, []Violation{NoFace}, none.Violations)
	assert.Equal(t, []string{NoFace.Hint()}, none.Hints)

	// two perfect faces still fail
	two := th.Evaluate([]Observation{centered(), centered()}, 640, 480)
	assert.False(t, two.Passed)
	assert.Equal(t, []Violation{MultipleFaces}, two.Violations)
}

func TestEvaluateViolations(t *testing.T) {

	tests := []struct {
		name   string
		obs    Observation
		mirror bool
		want   []Violation
	}{
		{
			name: "too small",
			obs:  Observation{Box: image.Rect(250, 200, 350, 300)},
			want: []Violation{TooSmall},
		},
		{
			name: "left edge",
			obs:  Observation{Box: image.Rect(5, 140, 205, 340)},
			want: []Violation{MoveRight},
		},
		{
			name:   "left edge mirrored",
			obs:    Observation{Box: image.Rect(5, 140, 205, 340)},
			mirror: true,
			want:   []Violation{MoveLeft},
		},
		{
			name: "right and bottom edge",
			obs:  Observation{Box: image.Rect(430, 270, 630, 470)},
			want: []Violation{MoveLeft, MoveUp},
		},
		{
			name: "top edge",
			obs:  Observation{Box: image.Rect(220, 10, 420, 210)},
			want: []Violation{MoveDown},
		},
		{
			name: "pose",
			obs: Observation{
				Box:  image.Rect(220, 140, 420, 340),
				Pose: Pose{Yaw: -25, Pitch: 21, Roll: 20},
			},
			want: []Violation{YawExceeded, PitchExceeded},
		},
		{
			name: "roll",
			obs: Observation{
				Box:  image.Rect(220, 140, 420, 340),
				Pose: Pose{Roll: -30},
			},
			want: []Violation{RollExceeded},
		},
		{
			name: "too close",
			obs:  Observation{Box: image.Rect(20, 20, 620, 460)},
			want: []Violation{TooClose},
		},
		{
			name: "past both side edges",
			obs:  Observation{Box: image.Rect(-50, 100, 700, 300)},
			want: []Violation{TooClose},
		},
		{
			name: "past every edge",
			obs:  Observation{Box: image.Rect(-50, -50, 700, 500)},
			want: []Violation{TooClose},
		},
		{
			name: "past top and bottom crowding left",
			obs:  Observation{Box: image.Rect(5, -10, 400, 490), Pose: Pose{Yaw: 30}},
			want: []Violation{TooClose, MoveRight, YawExceeded},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := testThresholds()
			th.MirrorHints = tt.mirror

			a := th.Evaluate([]Observation{tt.obs}, 640, 480)

			assert.False(t, a.Passed)
			assert.Equal(t, tt.want, a.Violations)
			assert.NotEmpty(t, a.Hints)
			assert.Equal(t, tt.want[0].Hint(), a.Hints[0])
		})
	}
}

func TestEvaluateHintLimit(t *testing.T) {
	th := testThresholds()

	obs := Observation{Box: image.Rect(0, 0, 50, 50), Pose: Pose{Yaw: 30}}
	a := th.Evaluate([]Observation{obs}, 640, 480)

	assert.Equal(t, []Violation{TooSmall, MoveRight, MoveDown, YawExceeded}, a.Violations)
	assert.Equal(t, []string{"Move closer", "Move right"}, a.Hints)

	th.MaxHints = 0
	assert.Len(t, th.Evaluate([]Observation{obs}, 640, 480).Hints, defaultMaxHints)

	th.MaxHints = 10
	assert.Len(t, th.Evaluate([]Observation{obs}, 640, 480).Hints, 4)
}

func TestEvaluateSpanningBoxHints(t *testing.T) {
	th := testThresholds()

	a := th.Evaluate([]Observation{{Box: image.Rect(-50, -50, 700, 500)}}, 640, 480)

	assert.Equal(t, []string{TooClose.Hint()}, a.Hints)
	assert.NotContains(t, a.Hints, MoveLeft.Hint())
	assert.NotContains(t, a.Hints, MoveRight.Hint())
}

func TestAreaFraction(t *testing.T) {
	assert.InDelta(t, 0.25, AreaFraction(image.Rect(0, 0, 50, 50), 100, 100), 1e-9)
	assert.Zero(t, AreaFraction(image.Rect(0, 0, 50, 50), 0, 100))
}
