package models

// SubtitleStyle is passed through to the platform's subtitle renderer.
// Colours use the platform's &H-prefixed hex notation.
type SubtitleStyle struct {
	FontName      string  `json:"font_name,omitempty"`
	FontSize      int     `json:"font_size,omitempty"`
	Bold          bool    `json:"bold"`
	PrimaryColour string  `json:"primary_colour,omitempty"`
	BackColour    string  `json:"back_colour,omitempty"`
	OutlineColour string  `json:"outline_colour,omitempty"`
	BorderStyle   string  `json:"border_style,omitempty"`
	Alignment     string  `json:"alignment,omitempty"`
	MarginV       int     `json:"margin_v,omitempty"`
	Outline       float64 `json:"outline,omitempty"`
	Shadow        float64 `json:"shadow,omitempty"`
}
