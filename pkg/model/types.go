package model

// Document describes a loaded PDF without its page contents.
type Document struct {
	Source   string   `json:"source"`
	Metadata Metadata `json:"metadata"`
	Pages    []Page   `json:"pages"`
}

// Metadata holds document-level information.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Producer string `json:"producer,omitempty"`
	// Encrypted indicates if the file was password protected
	Encrypted bool `json:"encrypted"`
}

// Page represents a single page in the PDF.
type Page struct {
	PageNumber int     `json:"page_number"`
	Width      float64 `json:"width"`  // in pt, after /Rotate
	Height     float64 `json:"height"` // in pt, after /Rotate
	Rotate     int     `json:"rotate"`
}

// Size is a width/height pair in device pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Viewport is the resolved geometry of one render pass.
type Viewport struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Scale    float64 `json:"scale"`
	Rotation int     `json:"rotation"`
}

// Size returns the viewport dimensions.
func (v Viewport) Size() Size {
	return Size{Width: v.Width, Height: v.Height}
}
