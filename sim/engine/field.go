package engine

import "fmt"

// Field is the rectangular grid vehicles move on. Valid positions are
// 0 <= x < Width and 0 <= y < Height.
type Field struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// NewField creates a field, rejecting non-positive dimensions
func NewField(width, height int) (Field, error) {
	if width <= 0 || height <= 0 {
		return Field{}, fmt.Errorf("%w: dimensions must be positive, got %d x %d", ErrInvalidField, width, height)
	}
	return Field{Width: width, Height: height}, nil
}

// IsWithinBounds checks if (x, y) is a valid position on the field
func (f Field) IsWithinBounds(x, y int) bool {
	return x >= 0 && x < f.Width && y >= 0 && y < f.Height
}

// Contains is IsWithinBounds for a Position
func (f Field) Contains(p Position) bool {
	return f.IsWithinBounds(p.X, p.Y)
}

// String renders the field as "W x H"
func (f Field) String() string {
	return fmt.Sprintf("%d x %d", f.Width, f.Height)
}
