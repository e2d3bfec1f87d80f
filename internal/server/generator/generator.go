// Package generator produces deterministic rule-based floor-plan layouts.
// It owns the layout document schema; the stores treat layouts as opaque.
package generator

import (
	"fmt"
	"strings"
)

// Room sizes in meters.
const (
	livingSize  = 5.0
	kitchenSize = 3.5
	bedSize     = 3.5
	bathSize    = 2.0

	roomSpacing = 0.5
)

type Room struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type Meta struct {
	Description string   `json:"description"`
	Mood        string   `json:"mood"`
	Bedrooms    int      `json:"bedrooms"`
	Notes       []string `json:"notes"`
}

type Layout struct {
	Rooms []Room `json:"rooms"`
	Meta  Meta   `json:"meta"`
}

// Generate builds a layout: living room at the origin, kitchen to its
// right, then bedroom/bathroom pairs stacked vertically. Keywords in the
// description or mood add suggestion notes. The same inputs always yield
// the same layout.
func Generate(description, mood string, bedrooms int) Layout {
	if bedrooms < 1 {
		bedrooms = 1
	}

	rooms := []Room{
		{Name: "Living Room", Size: livingSize, X: 0, Y: 0},
		{Name: "Kitchen", Size: kitchenSize, X: livingSize, Y: 0},
	}

	for i := 0; i < bedrooms; i++ {
		y := float64(i+1) * (bedSize + roomSpacing)
		rooms = append(rooms,
			Room{Name: fmt.Sprintf("Bedroom %d", i+1), Size: bedSize, X: 0, Y: y},
			Room{Name: fmt.Sprintf("Bathroom %d", i+1), Size: bathSize, X: bedSize + roomSpacing, Y: y},
		)
	}

	d := strings.ToLower(description)
	m := strings.ToLower(mood)

	notes := []string{}
	if strings.Contains(m, "eco") || strings.Contains(d, "eco") || strings.Contains(d, "green") {
		notes = append(notes, "Suggest solar panels / green roof")
	}
	if strings.Contains(m, "modern") || strings.Contains(d, "modern") {
		notes = append(notes, "Suggest open-plan living, large windows")
	}
	if strings.Contains(m, "cozy") || strings.Contains(d, "cozy") {
		notes = append(notes, "Suggest fireplace / warm lighting")
	}

	return Layout{
		Rooms: rooms,
		Meta: Meta{
			Description: description,
			Mood:        mood,
			Bedrooms:    bedrooms,
			Notes:       notes,
		},
	}
}
