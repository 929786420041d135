package pdf

import "math"

// Matrix is a 3x3 transform matrix (last row implicitly 0,0,1).
type Matrix [6]float64

func IdentityMatrix() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Mult multiplies matrix a by matrix b.
func (a Matrix) Mult(b Matrix) Matrix {
	return Matrix{
		a[0]*b[0] + a[1]*b[2],
		a[0]*b[1] + a[1]*b[3],
		a[2]*b[0] + a[3]*b[2],
		a[2]*b[1] + a[3]*b[3],
		a[4]*b[0] + a[5]*b[2] + b[4],
		a[4]*b[1] + a[5]*b[3] + b[5],
	}
}

// Apply maps the point (x, y) through m.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// scaleFactor estimates the uniform scaling of m, used for line widths.
func (m Matrix) scaleFactor() float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}

// ViewportTransform returns the matrix mapping PDF user space of a page
// with visible region box onto device pixels (origin top-left, y down),
// together with the device width and height. rotation is clockwise degrees
// and must be a multiple of 90.
func ViewportTransform(box Rectangle, scale float64, rotation int) (Matrix, float64, float64) {
	rotation = ((rotation % 360) + 360) % 360
	cx := (box.LLx + box.URx) / 2
	cy := (box.LLy + box.URy) / 2

	var a, b, c, d float64
	switch rotation {
	case 90:
		a, b, c, d = 0, 1, 1, 0
	case 180:
		a, b, c, d = -1, 0, 0, 1
	case 270:
		a, b, c, d = 0, -1, -1, 0
	default:
		a, b, c, d = 1, 0, 0, -1
	}

	var offX, offY, width, height float64
	if a == 0 {
		offX = math.Abs(cy-box.LLy) * scale
		offY = math.Abs(cx-box.LLx) * scale
		width = box.Height() * scale
		height = box.Width() * scale
	} else {
		offX = math.Abs(cx-box.LLx) * scale
		offY = math.Abs(cy-box.LLy) * scale
		width = box.Width() * scale
		height = box.Height() * scale
	}

	m := Matrix{
		a * scale, b * scale,
		c * scale, d * scale,
		offX - a*scale*cx - c*scale*cy,
		offY - b*scale*cx - d*scale*cy,
	}
	return m, width, height
}
