package domain

import "github.com/video-db/videodb-capture-quickstart/internal/models"

// LoomSubtitleStyle renders white text on a semi-transparent box at the
// bottom of the frame, Loom-style. 80 alpha on the box is 50% opacity.
var LoomSubtitleStyle = models.SubtitleStyle{
	FontName:      "Roboto",
	FontSize:      14,
	Bold:          false,
	PrimaryColour: "&HFFFFFF",
	BackColour:    "&H80000000",
	OutlineColour: "&H80000000",
	BorderStyle:   "opaque_box",
	Alignment:     "bottom_center",
	MarginV:       30,
	Outline:       2,
	Shadow:        0,
}
