package spatial

import "github.com/chewxy/math32"

// Vec3 is a 3-dimensional vector.
type Vec3 struct {
	X, Y, Z float32
}

func V3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Add the argument to a copy of the receiver, returning the sum.
func (v Vec3) Add(b Vec3) Vec3 {
	v.X += b.X
	v.Y += b.Y
	v.Z += b.Z
	return v
}

// Subtract the argument from a copy of the receiver, returning the difference.
func (v Vec3) Subtract(b Vec3) Vec3 {
	v.X -= b.X
	v.Y -= b.Y
	v.Z -= b.Z
	return v
}

// Scale returns the receiver multiplied by s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(b Vec3) float32 {
	return v.X*b.X + v.Y*b.Y + v.Z*b.Z
}

// Min returns the element-wise minimum.
func (v Vec3) Min(b Vec3) Vec3 {
	return Vec3{math32.Min(v.X, b.X), math32.Min(v.Y, b.Y), math32.Min(v.Z, b.Z)}
}

// Max returns the element-wise maximum.
func (v Vec3) Max(b Vec3) Vec3 {
	return Vec3{math32.Max(v.X, b.X), math32.Max(v.Y, b.Y), math32.Max(v.Z, b.Z)}
}

// Axis returns element i (0 = X, 1 = Y, 2 = Z).
func (v Vec3) Axis(i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

// AABB is an axis-aligned bounding box. A box whose Min exceeds its Max on any
// axis is empty; Empty returns the canonical one.
type AABB struct {
	Min, Max Vec3
}

// Box returns the box spanning min and max.
func Box(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Around returns the box of half extent ext centered on c.
func Around(c, ext Vec3) AABB {
	return AABB{Min: c.Subtract(ext), Max: c.Add(ext)}
}

// Empty returns the identity element of Union.
func Empty() AABB {
	inf := math32.Inf(1)
	return AABB{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Union returns the smallest box containing both.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Contains reports whether o lies inside b. The empty box lies inside
// every box.
func (b AABB) Contains(o AABB) bool {
	if o.IsEmpty() {
		return true
	}
	return b.Min.X <= o.Min.X && b.Min.Y <= o.Min.Y && b.Min.Z <= o.Min.Z &&
		o.Max.X <= b.Max.X && o.Max.Y <= b.Max.Y && o.Max.Z <= b.Max.Z
}

// Overlaps reports whether the boxes share at least one point. Touching faces
// count; empty boxes overlap nothing.
func (b AABB) Overlaps(o AABB) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y &&
		b.Min.Z <= o.Max.Z && o.Min.Z <= b.Max.Z
}

// Center returns the midpoint, or the origin for an empty box.
func (b AABB) Center() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the edge lengths, zero for an empty box.
func (b AABB) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Max.Subtract(b.Min)
}

// Area returns half the surface area.
func (b AABB) Area() float32 {
	d := b.Size()
	return d.X*d.Y + d.Y*d.Z + d.Z*d.X
}

// LongestAxis returns the axis along which the box is largest.
func (b AABB) LongestAxis() int {
	d := b.Size()
	switch {
	case d.X >= d.Y && d.X >= d.Z:
		return 0
	case d.Y >= d.Z:
		return 1
	}
	return 2
}

// Translate returns the box moved by d.
func (b AABB) Translate(d Vec3) AABB {
	return AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}
