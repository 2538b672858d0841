// Package aprs formats the position and status lines that are relayed to the APRS network
// and does the geodesy on reported positions.
package aprs

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

// EarthRadius in km
const EarthRadius = 6371.0

// DefaultPath returns the routing path used if none is configured.
func DefaultPath(callsign string) string {
	return fmt.Sprintf("APRS,qAR,%s-10:", callsign)
}

// Latitude formats the given latitude as ddmm.mm[NS].
func Latitude(lat float64) string {
	lat = math.Max(-90, math.Min(90, lat))
	hemisphere := 'N'
	if lat < 0 {
		lat = -lat
		hemisphere = 'S'
	}
	degrees, minutes := degreesMinutes(lat)
	return fmt.Sprintf("%02d%s%c", degrees, minutes, hemisphere)
}

// Longitude formats the given longitude as dddmm.mm[EW].
func Longitude(lon float64) string {
	lon = math.Max(-180, math.Min(180, lon))
	hemisphere := 'E'
	if lon < 0 {
		lon = -lon
		hemisphere = 'W'
	}
	degrees, minutes := degreesMinutes(lon)
	return fmt.Sprintf("%03d%s%c", degrees, minutes, hemisphere)
}

func degreesMinutes(value float64) (int, string) {
	degrees := int(value)
	minutes := fmt.Sprintf("%05.2f", (value-float64(degrees))*60)
	// 59.999 rounds up to 60.00
	if minutes[0] == '6' {
		minutes = "00.00"
		degrees++
	}
	return degrees, minutes
}

func latLng(lat, lon float64) s2.LatLng {
	return s2.LatLngFromDegrees(lat, lon)
}

// Distance returns the great circle distance between the two positions in km.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return latLng(lat1, lon1).Distance(latLng(lat2, lon2)).Radians() * EarthRadius
}

// Bearing returns the initial bearing from the first to the second position in degrees, 0 is north.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	from := latLng(lat1, lon1)
	to := latLng(lat2, lon2)
	deltaLng := (to.Lng - from.Lng).Radians()

	y := math.Sin(deltaLng) * math.Cos(to.Lat.Radians())
	x := math.Cos(from.Lat.Radians())*math.Sin(to.Lat.Radians()) -
		math.Sin(from.Lat.Radians())*math.Cos(to.Lat.Radians())*math.Cos(deltaLng)

	bearing := s1.Angle(math.Atan2(y, x)).Degrees()
	return math.Mod(bearing+360, 360)
}

// MGRS returns the military grid reference of the given position with 1m precision.
func MGRS(lat, lon float64) (string, error) {
	result, err := coordconv.DefaultMGRSConverter.ConvertFromGeodetic(latLng(lat, lon), 5)
	if err != nil {
		return "", fmt.Errorf("cannot convert %f,%f to MGRS: %w", lat, lon, err)
	}
	return fmt.Sprint(result), nil
}

// Position returns the info field of a position report, sym goes between latitude and longitude, tab after the longitude.
func Position(lat, lon float64, sym, tab byte, name, comment string) string {
	return fmt.Sprintf("!%s%c%s%c%s, %s", Latitude(lat), sym, Longitude(lon), tab, name, comment)
}

// Status returns the info field of a status report.
func Status(text string) string {
	return ">" + text
}

// State returns the status report of a received state SDS.
func State(text string, state uint16) string {
	return fmt.Sprintf(">State:%s (%d)", text, state)
}

// GroupCall returns the status report of a group call initiated by the given callsign.
func GroupCall(call string, originISSI, destinationISSI int) string {
	return fmt.Sprintf(">%s initiated groupcall: %d -> %d", call, originISSI, destinationISSI)
}

// QsoEnded returns the status report of an ended call with the given members.
func QsoEnded(members []string) string {
	if len(members) == 0 {
		return ">Transmission ended"
	}
	return ">Qso ended (" + strings.Join(members, ",") + ")"
}
