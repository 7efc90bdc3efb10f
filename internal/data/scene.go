package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/simcore/internal/spatial"
	"gopkg.in/yaml.v3"
)

// Vec3 is written in YAML as a flow sequence: [x, y, z].
type Vec3 [3]float32

func (v Vec3) Vec() spatial.Vec3 { return spatial.V3(v[0], v[1], v[2]) }

// SpawnGroup describes a batch of bodies scattered around a point.
type SpawnGroup struct {
	Name     string  `yaml:"name"`
	Tag      uint8   `yaml:"tag"`
	Count    int     `yaml:"count"`
	Position Vec3    `yaml:"position"`
	Spread   Vec3    `yaml:"spread"`   // uniform offset in [-spread, spread]
	Velocity Vec3    `yaml:"velocity"` // base velocity
	Jitter   float32 `yaml:"jitter"`   // uniform velocity noise per axis
	Extent   Vec3    `yaml:"extent"`   // half size of every body
	Lifetime int32   `yaml:"lifetime"` // ticks, 0 = forever
	Respawn  bool    `yaml:"respawn"`  // replace expired bodies
}

// Scene is a bounded box of space plus the groups spawned into it.
type Scene struct {
	Name   string       `yaml:"name"`
	Seed   int64        `yaml:"seed"`
	Min    Vec3         `yaml:"min"`
	Max    Vec3         `yaml:"max"`
	Groups []SpawnGroup `yaml:"groups"`
}

// Bounds returns the scene box.
func (s *Scene) Bounds() spatial.AABB {
	return spatial.Box(s.Min.Vec(), s.Max.Vec())
}

// Count returns the number of bodies spawned initially.
func (s *Scene) Count() int {
	n := 0
	for _, g := range s.Groups {
		n += g.Count
	}
	return n
}

// LoadScene loads a scene from a YAML file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(data)
}

// ParseScene decodes and checks a scene document.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if s.Bounds().IsEmpty() {
		return nil, fmt.Errorf("scene %q: min %v exceeds max %v", s.Name, s.Min, s.Max)
	}
	for i, g := range s.Groups {
		switch {
		case g.Count < 0:
			return nil, fmt.Errorf("scene %q group %d (%s): negative count", s.Name, i, g.Name)
		case g.Tag > 15:
			return nil, fmt.Errorf("scene %q group %d (%s): tag %d exceeds 15", s.Name, i, g.Name, g.Tag)
		case g.Extent[0] < 0 || g.Extent[1] < 0 || g.Extent[2] < 0:
			return nil, fmt.Errorf("scene %q group %d (%s): negative extent", s.Name, i, g.Name)
		}
	}
	return &s, nil
}
