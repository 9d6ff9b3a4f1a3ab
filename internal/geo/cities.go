package geo

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Location is a city with a Yabiladi page id and coordinates.
type Location struct {
	Key       string  `json:"key"`
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultKey is the location used when none is configured.
const DefaultKey = "tangier"

var cities = []Location{
	{Key: "tangier", ID: 101, Name: "Tangier", Latitude: 35.7595, Longitude: -5.8340},
	{Key: "casablanca", ID: 71, Name: "Casablanca", Latitude: 33.5731, Longitude: -7.5898},
	{Key: "rabat", ID: 95, Name: "Rabat", Latitude: 34.0209, Longitude: -6.8416},
	{Key: "marrakech", ID: 88, Name: "Marrakech", Latitude: 31.6295, Longitude: -7.9811},
	{Key: "fes", ID: 78, Name: "Fes", Latitude: 34.0181, Longitude: -5.0078},
	{Key: "agadir", ID: 66, Name: "Agadir", Latitude: 30.4278, Longitude: -9.5981},
	{Key: "meknes", ID: 89, Name: "Meknes", Latitude: 33.8935, Longitude: -5.5473},
	{Key: "oujda", ID: 93, Name: "Oujda", Latitude: 34.6814, Longitude: -1.9086},
	{Key: "kenitra", ID: 81, Name: "Kenitra", Latitude: 34.2610, Longitude: -6.5802},
	{Key: "tetouan", ID: 100, Name: "Tetouan", Latitude: 35.5889, Longitude: -5.3626},
	{Key: "safi", ID: 96, Name: "Safi", Latitude: 32.2994, Longitude: -9.2372},
	{Key: "mohammedia", ID: 90, Name: "Mohammedia", Latitude: 33.6866, Longitude: -7.3837},
	{Key: "khouribga", ID: 83, Name: "Khouribga", Latitude: 32.8811, Longitude: -6.9063},
	{Key: "el-jadida", ID: 74, Name: "El Jadida", Latitude: 33.2316, Longitude: -8.5007},
	{Key: "taza", ID: 105, Name: "Taza", Latitude: 34.2133, Longitude: -4.0103},
	{Key: "nador", ID: 91, Name: "Nador", Latitude: 35.1681, Longitude: -2.9287},
	{Key: "settat", ID: 98, Name: "Settat", Latitude: 33.0018, Longitude: -7.6164},
	{Key: "larache", ID: 87, Name: "Larache", Latitude: 35.1932, Longitude: -6.1563},
	{Key: "khenifra", ID: 82, Name: "Khenifra", Latitude: 32.9359, Longitude: -5.6675},
	{Key: "essaouira", ID: 76, Name: "Essaouira", Latitude: 31.5085, Longitude: -9.7595},
	{Key: "chefchaouen", ID: 72, Name: "Chefchaouen", Latitude: 35.1688, Longitude: -5.2636},
	{Key: "beni-mellal", ID: 68, Name: "Beni Mellal", Latitude: 32.3373, Longitude: -6.3498},
	{Key: "al-hoceima", ID: 79, Name: "Al Hoceima", Latitude: 35.2517, Longitude: -3.9316},
	{Key: "taroudant", ID: 103, Name: "Taroudant", Latitude: 30.4703, Longitude: -8.8770},
	{Key: "ouazzane", ID: 92, Name: "Ouazzane", Latitude: 34.7936, Longitude: -5.5836},
	{Key: "sefrou", ID: 97, Name: "Sefrou", Latitude: 33.8307, Longitude: -4.8372},
	{Key: "berkane", ID: 69, Name: "Berkane", Latitude: 34.9218, Longitude: -2.3200},
	{Key: "errachidia", ID: 75, Name: "Errachidia", Latitude: 31.9314, Longitude: -4.4244},
	{Key: "laayoune", ID: 85, Name: "Laayoune", Latitude: 27.1253, Longitude: -13.1625},
	{Key: "tiznit", ID: 106, Name: "Tiznit", Latitude: 29.6974, Longitude: -9.7316},
	{Key: "ifrane", ID: 80, Name: "Ifrane", Latitude: 33.5228, Longitude: -5.1106},
	{Key: "zagora", ID: 107, Name: "Zagora", Latitude: 30.3314, Longitude: -5.8372},
	{Key: "dakhla", ID: 73, Name: "Dakhla", Latitude: 23.6848, Longitude: -15.9570},
	{Key: "tan-tan", ID: 102, Name: "Tan Tan", Latitude: 28.4378, Longitude: -11.1031},
	{Key: "sidi-kacem", ID: 99, Name: "Sidi Kacem", Latitude: 34.2214, Longitude: -5.7081},
	{Key: "ksar-lekbir", ID: 84, Name: "Ksar Lekbir", Latitude: 35.0119, Longitude: -5.9033},
	{Key: "taounate", ID: 104, Name: "Taounate", Latitude: 34.5386, Longitude: -4.6372},
	{Key: "assila", ID: 67, Name: "Assila", Latitude: 35.4650, Longitude: -6.0362},
	{Key: "boulemane", ID: 70, Name: "Boulemane", Latitude: 33.3614, Longitude: -4.7331},
	{Key: "kalaat-sraghna", ID: 94, Name: "Kalaat Sraghna", Latitude: 32.0587, Longitude: -7.4103},
	{Key: "lagouira", ID: 86, Name: "Lagouira", Latitude: 20.9331, Longitude: -17.0439},
	{Key: "moulay-idriss-zerhoun", ID: 108, Name: "Moulay Idriss Zerhoun", Latitude: 34.0581, Longitude: -5.5203},
	{Key: "smara", ID: 77, Name: "Smara", Latitude: 26.7386, Longitude: -11.6719},
}

var byKey = func() map[string]Location {
	m := make(map[string]Location, len(cities))
	for _, c := range cities {
		m[c.Key] = c
	}
	return m
}()

// All returns the known cities sorted by name.
func All() []Location {
	out := make([]Location, len(cities))
	copy(out, cities)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default returns Tangier.
func Default() Location {
	return byKey[DefaultKey]
}

// NormalizeKey turns a display name such as "El Jadida" into its key.
func NormalizeKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// Lookup finds a city by key or display name.
func Lookup(name string) (Location, error) {
	if loc, ok := byKey[NormalizeKey(name)]; ok {
		return loc, nil
	}
	return Location{}, fmt.Errorf("unknown city: %q (run 'salah-times cities' to list them)", name)
}

// Nearest returns the known city closest to lat/lon and its distance in km.
func Nearest(lat, lon float64) (Location, float64) {
	best, bestDist := cities[0], math.Inf(1)
	for _, c := range cities {
		if d := Distance(lat, lon, c.Latitude, c.Longitude); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

const earthRadiusKm = 6371.0

// Distance is the great-circle distance between two points in km.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
