package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// CSVHeader is the fixed column order of the CSV report.
var CSVHeader = []string{
	"id",
	"user.id", "user.name", "user.email",
	"store.id", "store.brand", "store.location", "store.address", "store.city", "store.state", "store.country",
	"status",
	"isWithinGeofence", "clockInWithinGeofence", "clockOutWithinGeofence",
	"clockIn.time", "clockIn.location.longitude", "clockIn.location.latitude", "clockIn.image",
	"clockOut.time", "clockOut.location.longitude", "clockOut.location.latitude",
	"duration",
	"locationStatus",
	"createdAt", "updatedAt",
}

// WriteCSV writes records with CSVHeader. Every value is quoted and inner quotes are doubled.
// Nothing is written for an empty report.
func WriteCSV(w io.Writer, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(CSVHeader, ",") + "\n")
	for i := range records {
		writeRow(bw, csvValues(&records[i]))
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, values []string) {
	for i, v := range values {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(v, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

func csvValues(r *Record) []string {
	var (
		outTime, outLon, outLat, outWithin string
		image                              string
	)
	if r.ClockOut != nil {
		outTime = formatTime(r.ClockOut.Time)
		outLon = formatFloat(r.ClockOut.Location.Coordinates[0])
		outLat = formatFloat(r.ClockOut.Location.Coordinates[1])
	}
	if r.ClockOutWithinGeofence != nil {
		outWithin = strconv.FormatBool(*r.ClockOutWithinGeofence)
	}
	if r.ClockIn.ImageURL != nil {
		image = *r.ClockIn.ImageURL
	}
	return []string{
		r.ID,
		r.User.ID, r.User.Name, r.User.Email,
		r.Store.ID, r.Store.Brand, r.Store.Location, r.Store.Address, r.Store.City, r.Store.State, r.Store.Country,
		r.Status,
		r.IsWithinGeofence, strconv.FormatBool(r.ClockInWithinGeofence), outWithin,
		formatTime(r.ClockIn.Time),
		formatFloat(r.ClockIn.Location.Coordinates[0]), formatFloat(r.ClockIn.Location.Coordinates[1]),
		image,
		outTime, outLon, outLat,
		r.Duration,
		r.LocationStatus,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
