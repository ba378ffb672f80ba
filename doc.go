/*
go-facecapture takes a single well framed, still and sharp photo of a face
from a live camera stream.  Each frame is checked by a face detector and a
set of quality gates: exactly one face, large enough, inside the frame
margins, looking at the camera and not too close.  The head must then stop
moving and every gate must hold for a dwell period before the face region
is cropped out of the raw sensor frame, checked for blur and written out as
a JPEG.

Frames are pushed to a Session with Submit, guidance for the subject and
the final capture are delivered on the Events channel.  Only one frame is
analyzed at a time, frames arriving meanwhile are dropped.

See example code and usage in the example subdirectory.
*/
package facecapture
