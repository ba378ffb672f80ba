package tracker

import (
	"image"
	"math"
	"slices"
	"testing"
)

func TestIoU(t *testing.T) {

	tests := []struct {
		name string
		a, b image.Rectangle
		want float64
	}{
		{"identical", image.Rect(0, 0, 10, 10), image.Rect(0, 0, 10, 10), 1},
		{"half", image.Rect(0, 0, 10, 10), image.Rect(5, 0, 15, 10), 50.0 / 150.0},
		{"disjoint", image.Rect(0, 0, 10, 10), image.Rect(20, 20, 30, 30), 0},
		{"empty", image.Rect(0, 0, 0, 0), image.Rect(0, 0, 10, 10), 0},
	}

	for _, tt := range tests {
		got := IoU(tt.a, tt.b)

		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: expected IoU %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestFaceTrackerKeepsID(t *testing.T) {
	ft := NewFaceTracker(0.3, 2)

	first := ft.Update([]image.Rectangle{image.Rect(100, 100, 200, 200)})

	if len(first) != 1 {
		t.Fatalf("expected 1 track ID, got %d", len(first))
	}

	if first[0] == NoTrackID {
		t.Errorf("expected a track ID to be assigned")
	}

	// small movement keeps the ID
	second := ft.Update([]image.Rectangle{image.Rect(105, 102, 205, 202)})

	if !slices.Equal(first, second) {
		t.Errorf("expected IDs %v after small movement, got %v", first, second)
	}

	// a jump across the frame is a new subject
	third := ft.Update([]image.Rectangle{image.Rect(400, 100, 500, 200)})

	if third[0] == first[0] {
		t.Errorf("expected a new ID after a jump, got %d again", third[0])
	}
}

func TestFaceTrackerLost(t *testing.T) {
	ft := NewFaceTracker(0.3, 1)
	box := image.Rect(100, 100, 200, 200)

	id := ft.Update([]image.Rectangle{box})[0]

	// one missed frame is tolerated
	ft.Update(nil)

	if got := ft.Update([]image.Rectangle{box})[0]; got != id {
		t.Errorf("expected ID %d after one missed frame, got %d", id, got)
	}

	// two missed frames forget the track
	ft.Update(nil)
	ft.Update(nil)

	if ft.Len() != 0 {
		t.Errorf("expected no tracks, got %d", ft.Len())
	}

	if got := ft.Update([]image.Rectangle{box})[0]; got == id {
		t.Errorf("expected a new ID for a forgotten track, got %d again", got)
	}
}

func TestFaceTrackerMultiple(t *testing.T) {
	ft := NewFaceTracker(0.3, 2)

	a := image.Rect(0, 0, 100, 100)
	b := image.Rect(300, 0, 400, 100)

	ids := ft.Update([]image.Rectangle{a, b})

	if ids[0] == ids[1] {
		t.Fatalf("expected distinct IDs, got %v", ids)
	}

	// order swapped in the next frame, IDs follow the boxes
	swapped := ft.Update([]image.Rectangle{b, a})
	want := []int{ids[1], ids[0]}

	if !slices.Equal(want, swapped) {
		t.Errorf("expected IDs %v, got %v", want, swapped)
	}
}

func TestFaceTrackerReset(t *testing.T) {
	ft := NewFaceTracker(0.3, 2)
	box := image.Rect(0, 0, 100, 100)

	id := ft.Update([]image.Rectangle{box})[0]
	ft.Reset()

	if got := ft.Update([]image.Rectangle{box})[0]; got <= id {
		t.Errorf("expected an ID above %d after reset, got %d", id, got)
	}
}
