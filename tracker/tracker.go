/*
Package tracker assigns tracking IDs to face detections so the same
physical subject keeps its ID across consecutive frames.
*/
package tracker

import (
	"image"
	"sort"
	"sync"
)

// NoTrackID is the sentinel for a detection without a stable tracking ID
const NoTrackID = -1

// IDGenerator is a struct to hold a counter for generating the next
// incremental track ID
type IDGenerator struct {
	id int
	sync.Mutex
}

// NewIDGenerator returns a new ID generator starting at 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental ID
func (g *IDGenerator) GetNext() int {
	g.Lock()
	defer g.Unlock()
	g.id++
	return g.id
}

// track is a face being followed between frames
type track struct {
	id   int
	rect image.Rectangle
	// lost is the number of consecutive frames without a matching detection
	lost int
}

// FaceTracker matches face boxes between frames by Intersection over Union.
// A detection overlapping a known track by at least the IoU threshold keeps
// that track's ID, other detections start new tracks.  Tracks not seen for
// more than maxLost frames are forgotten.
type FaceTracker struct {
	iouThresh float64
	maxLost   int
	tracks    []*track
	ids       *IDGenerator
}

// NewFaceTracker returns a tracker.  iouThresh is the minimum overlap to
// associate a detection with an existing track, maxLost the number of
// frames a track survives without detections.
func NewFaceTracker(iouThresh float64, maxLost int) *FaceTracker {
	return &FaceTracker{
		iouThresh: iouThresh,
		maxLost:   maxLost,
		ids:       NewIDGenerator(),
	}
}

// Reset clears all tracks.  IDs continue to increment so a subject seen
// after a reset never reuses an earlier ID.
func (ft *FaceTracker) Reset() {
	ft.tracks = nil
}

// pair is a candidate association between a track and a detection
type pair struct {
	track int
	det   int
	iou   float64
}

// Update associates the boxes detected in the current frame with the known
// tracks and returns the tracking ID for each box in order
func (ft *FaceTracker) Update(boxes []image.Rectangle) []int {

	ids := make([]int, len(boxes))
	for i := range ids {
		ids[i] = NoTrackID
	}

	// collect all candidate pairs above threshold
	var pairs []pair

	for ti, t := range ft.tracks {
		for di, b := range boxes {
			if iou := IoU(t.rect, b); iou >= ft.iouThresh && iou > 0 {
				pairs = append(pairs, pair{track: ti, det: di, iou: iou})
			}
		}
	}

	// greedy association, highest overlap first
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].iou > pairs[j].iou
	})

	trackUsed := make([]bool, len(ft.tracks))
	detUsed := make([]bool, len(boxes))

	for _, p := range pairs {
		if trackUsed[p.track] || detUsed[p.det] {
			continue
		}

		trackUsed[p.track] = true
		detUsed[p.det] = true

		t := ft.tracks[p.track]
		t.rect = boxes[p.det]
		t.lost = 0
		ids[p.det] = t.id
	}

	// age unmatched tracks and drop those lost too long
	kept := ft.tracks[:0]

	for ti, t := range ft.tracks {
		if !trackUsed[ti] {
			t.lost++
		}

		if t.lost <= ft.maxLost {
			kept = append(kept, t)
		}
	}

	ft.tracks = kept

	// start new tracks for unmatched detections
	for di, b := range boxes {
		if detUsed[di] {
			continue
		}

		t := &track{id: ft.ids.GetNext(), rect: b}
		ft.tracks = append(ft.tracks, t)
		ids[di] = t.id
	}

	return ids
}

// Len returns the number of live tracks
func (ft *FaceTracker) Len() int {
	return len(ft.tracks)
}
