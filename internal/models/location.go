package models

type Location struct {
	Type        string    `json:"type" bson:"type" default:"Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Address     string    `json:"address" bson:"address"`
	PlaceName   string    `json:"place_name" bson:"place_name"`
}

func NewLocation(lat, lng float64, address, placeName string) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
		Address:     address,
		PlaceName:   placeName,
	}
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}

// HasCoordinates reports whether the location carries a usable lat/lng pair.
func (l Location) HasCoordinates() bool {
	return len(l.Coordinates) == 2 && (l.Coordinates[0] != 0 || l.Coordinates[1] != 0)
}
