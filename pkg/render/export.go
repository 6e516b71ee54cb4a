package render

import (
	"encoding/json"
	"fmt"
	"os"

	sdfrender "github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangles3 converts the shape's indexed mesh to sdfx triangles.
func (s *Shape) Triangles3() []*sdf.Triangle3 {
	vertex := func(i uint32) v3.Vec {
		return v3.Vec{
			X: float64(s.Vertices[3*i]),
			Y: float64(s.Vertices[3*i+1]),
			Z: float64(s.Vertices[3*i+2]),
		}
	}
	out := make([]*sdf.Triangle3, 0, len(s.Triangles)/3)
	for i := 0; i+2 < len(s.Triangles); i += 3 {
		out = append(out, &sdf.Triangle3{
			vertex(s.Triangles[i]),
			vertex(s.Triangles[i+1]),
			vertex(s.Triangles[i+2]),
		})
	}
	return out
}

// SaveSTL writes the shape's geometry as a binary STL file.
func SaveSTL(path string, s *Shape) error {
	if err := sdfrender.SaveSTL(path, s.Triangles3()); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// SaveJSON writes the whole shape, colors included, as JSON.
func SaveJSON(path string, s *Shape) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding shape %s: %w", s.ID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
