// Package selection holds the catalogue of autonomous communities served
// by the generation API and the choice helpers used by the CLI tools.
package selection

import (
	"fmt"
	"sort"
	"strings"

	apperrors "genpulse/internal/errors"
	"genpulse/pkg/contracts/domain"
)

// Region identifies an autonomous community in the generation API.
type Region struct {
	Name  string
	GeoID int
}

// Regions returns the supported autonomous communities in menu order.
// Geo IDs follow the API's ccaa identifiers.
func Regions() []Region {
	return []Region{
		{Name: "Andalucía", GeoID: 4},
		{Name: "Aragón", GeoID: 5},
		{Name: "Cantabria", GeoID: 6},
		{Name: "Castilla - La Mancha", GeoID: 7},
		{Name: "Castilla y León", GeoID: 8},
		{Name: "Cataluña", GeoID: 9},
		{Name: "País Vasco", GeoID: 10},
		{Name: "Principado de Asturias", GeoID: 11},
		{Name: "Comunidad de Madrid", GeoID: 13},
		{Name: "Comunidad Foral de Navarra", GeoID: 14},
		{Name: "Comunitat Valenciana", GeoID: 15},
		{Name: "Extremadura", GeoID: 16},
		{Name: "Galicia", GeoID: 17},
		{Name: "Islas Baleares", GeoID: 8743},
		{Name: "Islas Canarias", GeoID: 8742},
		{Name: "La Rioja", GeoID: 20},
		{Name: "Región de Murcia", GeoID: 21},
	}
}

// SelectRegion returns the region at the 1-based menu position.
func SelectRegion(regions []Region, choice int) (Region, error) {
	if choice < 1 || choice > len(regions) {
		return Region{}, apperrors.NewValidationError(
			fmt.Sprintf("region choice %d out of range [1, %d]", choice, len(regions)), nil)
	}
	return regions[choice-1], nil
}

// RegionByName finds a region by case-insensitive name match.
func RegionByName(regions []Region, name string) (Region, error) {
	for _, r := range regions {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return Region{}, apperrors.NewValidationError(
		fmt.Sprintf("unknown region %q", name), nil)
}

// Technologies lists the distinct technology names present in a set of
// records, sorted for stable menus.
func Technologies(records []domain.GenerationRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if r.Technology != "" {
			seen[r.Technology] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectTechnology returns the technology at the 1-based menu position.
func SelectTechnology(technologies []string, choice int) (string, error) {
	if choice < 1 || choice > len(technologies) {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("technology choice %d out of range [1, %d]", choice, len(technologies)), nil)
	}
	return technologies[choice-1], nil
}
