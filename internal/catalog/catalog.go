// Package catalog holds the read-only hospital, specialty and doctor data the
// mobile client books against. The booking core never validates against it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

//go:embed hospitals.json
var hospitalsJSON []byte

var ErrNotFound = errors.New("catalog entry not found")

type Doctor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Experience     int    `json:"experience"`
}

type Category struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	AvailableTimes []string `json:"availableTimes"`
	Doctors        []Doctor `json:"doctors"`
}

type Hospital struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Rating     float64    `json:"rating"`
	Categories []Category `json:"categories"`
}

// Selection is one bookable doctor/category/hospital combination with the
// display names copied onto an appointment.
type Selection struct {
	HospitalID   string
	HospitalName string
	CategoryID   string
	CategoryName string
	DoctorID     string
	DoctorName   string
	Times        []string
}

type Catalog struct {
	hospitals []Hospital
	byID      map[string]int
}

// Default parses the embedded data set.
func Default() (*Catalog, error) {
	return Parse(hospitalsJSON)
}

func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Hospitals []Hospital `json:"hospitals"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{hospitals: doc.Hospitals, byID: make(map[string]int, len(doc.Hospitals))}
	for i, h := range doc.Hospitals {
		if _, dup := c.byID[h.ID]; dup {
			return nil, fmt.Errorf("duplicate hospital id %q", h.ID)
		}
		c.byID[h.ID] = i
	}
	return c, nil
}

func (c *Catalog) Hospitals() []Hospital {
	return c.hospitals
}

func (c *Catalog) Hospital(id string) (Hospital, error) {
	i, ok := c.byID[id]
	if !ok {
		return Hospital{}, ErrNotFound
	}
	return c.hospitals[i], nil
}

// Selections flattens the catalog into every hospital/category/doctor triple.
func (c *Catalog) Selections() []Selection {
	var out []Selection
	for _, h := range c.hospitals {
		for _, cat := range h.Categories {
			for _, d := range cat.Doctors {
				out = append(out, Selection{
					HospitalID:   h.ID,
					HospitalName: h.Name,
					CategoryID:   cat.ID,
					CategoryName: cat.Name,
					DoctorID:     d.ID,
					DoctorName:   d.Name,
					Times:        cat.AvailableTimes,
				})
			}
		}
	}
	return out
}
