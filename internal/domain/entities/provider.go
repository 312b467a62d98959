package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/careslot/pkg/geo"
)

// Specialty is one of the fixed medical specialties a provider can list under
type Specialty string

const (
	SpecialtyGeneralPractitioner Specialty = "General Practitioner"
	SpecialtyCardiologist        Specialty = "Cardiologist"
	SpecialtyDermatologist       Specialty = "Dermatologist"
	SpecialtyNeurologist         Specialty = "Neurologist"
	SpecialtyPediatrician        Specialty = "Pediatrician"
	SpecialtyPsychiatrist        Specialty = "Psychiatrist"
	SpecialtyOrthopedist         Specialty = "Orthopedist"
	SpecialtyGynecologist        Specialty = "Gynecologist"
	SpecialtyUrologist           Specialty = "Urologist"
	SpecialtyOphthalmologist     Specialty = "Ophthalmologist"
	SpecialtyENTSpecialist       Specialty = "ENT Specialist"
	SpecialtyDentist             Specialty = "Dentist"
)

var specialties = []Specialty{
	SpecialtyGeneralPractitioner,
	SpecialtyCardiologist,
	SpecialtyDermatologist,
	SpecialtyNeurologist,
	SpecialtyPediatrician,
	SpecialtyPsychiatrist,
	SpecialtyOrthopedist,
	SpecialtyGynecologist,
	SpecialtyUrologist,
	SpecialtyOphthalmologist,
	SpecialtyENTSpecialist,
	SpecialtyDentist,
}

// Specialties returns the ordered specialty list
func Specialties() []Specialty {
	out := make([]Specialty, len(specialties))
	copy(out, specialties)
	return out
}

// IsValid reports whether s is in the fixed specialty set
func (s Specialty) IsValid() bool {
	for _, known := range specialties {
		if s == known {
			return true
		}
	}
	return false
}

// Location represents geographical coordinates
type Location struct {
	Lat float64 `json:"lat" db:"latitude"`
	Lng float64 `json:"lng" db:"longitude"`
}

// Point converts the location for distance calculations
func (l Location) Point() geo.Point {
	return geo.Point{Lat: l.Lat, Lng: l.Lng}
}

// Provider is a bookable healthcare provider with a slot calendar
type Provider struct {
	ID           string            `json:"id" db:"id"`
	Name         string            `json:"name" db:"name"`
	Specialty    Specialty         `json:"specialty" db:"specialty"`
	Address      string            `json:"address" db:"address"`
	Phone        string            `json:"phone" db:"phone"`
	Email        string            `json:"email" db:"email"`
	Rating       float64           `json:"rating" db:"rating"`
	Location     Location          `json:"location" db:"-"`
	PlaceID      string            `json:"placeId,omitempty" db:"place_id"`
	Availability []DayAvailability `json:"availability,omitempty" db:"-"`
	CreatedAt    time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time         `json:"updatedAt" db:"updated_at"`
}

// Profile returns a copy of the provider without its calendar
func (p *Provider) Profile() *Provider {
	if p == nil {
		return nil
	}
	out := *p
	out.Availability = nil
	return &out
}

// Clone returns a deep copy, calendar included
func (p *Provider) Clone() *Provider {
	if p == nil {
		return nil
	}
	out := *p
	out.Availability = CloneCalendar(p.Availability)
	return &out
}

// Validate checks the provisioning invariants of a provider record and
// normalizes its calendar ordering.
func (p *Provider) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("provider id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("provider %s: name is required", p.ID)
	}
	if !p.Specialty.IsValid() {
		return fmt.Errorf("provider %s: unknown specialty %q", p.ID, p.Specialty)
	}
	if !p.Location.Point().Valid() {
		return fmt.Errorf("provider %s: invalid location %v", p.ID, p.Location)
	}
	calendar, err := NormalizeCalendar(p.Availability)
	if err != nil {
		return fmt.Errorf("provider %s: %w", p.ID, err)
	}
	p.Availability = calendar
	return nil
}
