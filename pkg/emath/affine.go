package emath

// Affine transformations, used to map grid indices onto ground coordinates

import(
	"fmt"
	"math"
	"golang.org/x/image/math/f64"  // Will be "image/math/f64" at some point, hopefully make this file redundant
)

// Use a local type so we can hang methods off it. Layout is row major,
// {a, b, c, d, e, f}: x' = a*x + b*y + c, y' = d*x + e*y + f
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3)Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0,   0, 1, 0}
}

func (m1 Aff3)Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx,   0, 1, ty})
}

func (m1 Aff3)Rotate(thetaDeg float64) Aff3 {
	cosTheta := math.Cos(thetaDeg * math.Pi / 180.0)
	sinTheta := math.Sin(thetaDeg * math.Pi / 180.0)
	return m1.Mult(Aff3{cosTheta, -1*sinTheta, 0,    sinTheta, cosTheta, 0})
}

// Apply maps the point (x,y) through the transform.
func (m Aff3)Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// ApplyLinear maps a vector through the transform, ignoring the translation part.
func (m Aff3)ApplyLinear(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y, m[3]*x + m[4]*y
}

func (m Aff3)Det() float64 { return m[0]*m[4] - m[1]*m[3] }

// Invert returns the inverse transform; it fails if the linear part is singular.
func (m Aff3)Invert() (Aff3, error) {
	det := m.Det()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Aff3{}, fmt.Errorf("affine transform is not invertible (det=%g)", det)
	}
	ia :=  m[4] / det
	ib := -m[1] / det
	id := -m[3] / det
	ie :=  m[0] / det
	return Aff3{
		ia, ib, -(ia*m[2] + ib*m[5]),
		id, ie, -(id*m[2] + ie*m[5]),
	}, nil
}

func (m Aff3)String() string {
	return fmt.Sprintf("[%g %g %g; %g %g %g]", m[0], m[1], m[2], m[3], m[4], m[5])
}

// A Vec3 holds an (east, north, vertical) triplet, in ground units.
type Vec3 f64.Vec3

func (v Vec3)Add(w Vec3) Vec3 { return Vec3{v[0]+w[0], v[1]+w[1], v[2]+w[2]} }
func (v Vec3)Scale(f float64) Vec3 { return Vec3{v[0]*f, v[1]*f, v[2]*f} }
func (v Vec3)Norm() float64 { return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]) }

func (v Vec3)String() string {
	return fmt.Sprintf("[%12.6f, %12.6f, %12.6f]", v[0], v[1], v[2])
}
