// Package report builds the denormalized attendance report and its CSV rendition.
package report

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"attendance-tracker/backend/internal/attendance/domain"
	"attendance-tracker/backend/internal/geo"
)

// NotAvailable replaces values whose referenced entity no longer exists.
const NotAvailable = "N/A"

// Location status labels.
const (
	WithinGeofence  = "Within Geofence"
	OutsideGeofence = "Outside Geofence"
)

// Filter selects the sessions of a report.
type Filter = domain.ReportFilter

// Source loads sessions joined with their references.
type Source interface {
	ReportRows(ctx context.Context, f domain.ReportFilter) ([]*domain.ReportRow, error)
}

// Point is a GeoJSON point; Coordinates are [longitude, latitude].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func pointOf(c geo.Coordinate) Point {
	return Point{Type: "Point", Coordinates: [2]float64{c.Longitude, c.Latitude}}
}

type RecordUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RecordStore struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Location string `json:"location"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

type RecordClockIn struct {
	Time     time.Time `json:"time"`
	Location Point     `json:"location"`
	// ImageURL is nil when no photo was taken.
	ImageURL *string `json:"image"`
}

type RecordClockOut struct {
	Time     time.Time `json:"time"`
	Location Point     `json:"location"`
}

// Record is one session of the report with its references flattened in.
type Record struct {
	ID     string      `json:"id"`
	User   RecordUser  `json:"user"`
	Store  RecordStore `json:"store"`
	Status string      `json:"status"`
	// IsWithinGeofence is "Yes" or "No" for the session-level flag.
	IsWithinGeofence       string          `json:"isWithinGeofence"`
	ClockInWithinGeofence  bool            `json:"clockInWithinGeofence"`
	ClockOutWithinGeofence *bool           `json:"clockOutWithinGeofence"`
	ClockIn                RecordClockIn   `json:"clockIn"`
	ClockOut               *RecordClockOut `json:"clockOut"`
	Duration               string          `json:"duration"`
	LocationStatus         string          `json:"locationStatus"`
	// MissingReferences is set when the session's user or store no longer exists.
	MissingReferences bool      `json:"missingReferences,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type IncludedUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type IncludedStore struct {
	ID             string  `json:"id"`
	GeofenceRadius float64 `json:"geofenceRadius"`
	Location       Point   `json:"location"`
	IsActive       bool    `json:"isActive"`
	BrandID        string  `json:"brandId,omitempty"`
	LocationID     string  `json:"locationId,omitempty"`
}

type IncludedBrand struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
}

type IncludedLocation struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// Bundle holds each entity referenced by the records once, in first-seen order.
type Bundle struct {
	Users     []IncludedUser     `json:"users"`
	Stores    []IncludedStore    `json:"stores"`
	Brands    []IncludedBrand    `json:"brands"`
	Locations []IncludedLocation `json:"locations"`
}

// Report is the generated attendance report.
type Report struct {
	Records  []Record `json:"data"`
	Included Bundle   `json:"included"`
}

// Engine generates attendance reports.
type Engine struct {
	source  Source
	baseURL string
	tracer  trace.Tracer
}

// NewEngine returns a report engine. Image links are built as {baseURL}/api/attendance/image/{id}.
func NewEngine(source Source, baseURL string, tracer trace.Tracer) *Engine {
	if tracer == nil {
		tracer = otel.Tracer("attendance-tracker/report")
	}
	return &Engine{source: source, baseURL: baseURL, tracer: tracer}
}

// ImageURL returns the public URL of a session's clock-in photo.
func (e *Engine) ImageURL(sessionID string) string {
	return e.baseURL + "/api/attendance/image/" + sessionID
}

// Generate returns the report for f, clock-in time descending.
func (e *Engine) Generate(ctx context.Context, f Filter) (*Report, error) {
	ctx, span := e.tracer.Start(ctx, "report.Generate")
	defer span.End()

	if err := f.Range.Validate(); err != nil {
		return nil, err
	}
	rows, err := e.source.ReportRows(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load report rows: %w", err)
	}
	span.SetAttributes(attribute.Int("records", len(rows)))

	rep := &Report{Records: make([]Record, 0, len(rows))}
	b := newBundler()
	for _, row := range rows {
		rec := e.record(row)
		if rec.MissingReferences {
			log.Printf("report: session %s references missing user %s or store %s", row.Session.ID, row.Session.UserID, row.Session.StoreID)
		}
		rep.Records = append(rep.Records, rec)
		b.add(row)
	}
	rep.Included = b.bundle
	return rep, nil
}

func (e *Engine) record(row *domain.ReportRow) Record {
	s := row.Session
	rec := Record{
		ID:                    s.ID,
		Status:                string(s.Status),
		IsWithinGeofence:      yesNo(s.IsWithinGeofence),
		ClockInWithinGeofence: s.ClockIn.WithinGeofence,
		ClockIn: RecordClockIn{
			Time:     s.ClockIn.Time,
			Location: pointOf(s.ClockIn.Coordinate),
		},
		Duration:       "0h 0.00m",
		LocationStatus: OutsideGeofence,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		User:           RecordUser{ID: orNA(s.UserID), Name: NotAvailable, Email: NotAvailable},
		Store: RecordStore{
			ID: orNA(s.StoreID), Brand: NotAvailable, Location: NotAvailable, Address: NotAvailable,
			City: NotAvailable, State: NotAvailable, Country: NotAvailable,
		},
	}
	if s.IsWithinGeofence {
		rec.LocationStatus = WithinGeofence
	}
	if s.HasPhoto() {
		url := e.ImageURL(s.ID)
		rec.ClockIn.ImageURL = &url
	}
	if s.ClockOut != nil {
		within := s.ClockOut.WithinGeofence
		rec.ClockOutWithinGeofence = &within
		rec.ClockOut = &RecordClockOut{Time: s.ClockOut.Time, Location: pointOf(s.ClockOut.Coordinate)}
		rec.Duration = FormatDuration(s.ClockOut.Time.Sub(s.ClockIn.Time))
	}

	if u := row.User; u != nil {
		rec.User = RecordUser{ID: u.ID, Name: orNA(u.FullName()), Email: orNA(u.Email)}
	}
	if st := row.Store; st != nil {
		rec.Store.ID = st.ID
	}
	if b := row.Brand; b != nil {
		rec.Store.Brand = orNA(b.Name)
	}
	if l := row.Location; l != nil {
		rec.Store.Location = orNA(l.Name)
		rec.Store.Address = orNA(l.Address)
		rec.Store.City = orNA(l.City)
		rec.Store.State = orNA(l.State)
		rec.Store.Country = orNA(l.Country)
	}
	rec.MissingReferences = row.User == nil || row.Store == nil
	return rec
}

// FormatDuration renders d as "{hours}h {minutes}m" over fractional minutes, minutes with two decimals.
// The total is rounded to hundredths of a minute before it is split, so minutes never print as 60.00.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := math.Round(d.Minutes()*100) / 100
	hours := math.Floor(minutes / 60)
	return fmt.Sprintf("%dh %.2fm", int(hours), minutes-hours*60)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

type bundler struct {
	seen   map[string]bool
	bundle Bundle
}

func newBundler() *bundler {
	return &bundler{
		seen: map[string]bool{},
		bundle: Bundle{
			Users:     []IncludedUser{},
			Stores:    []IncludedStore{},
			Brands:    []IncludedBrand{},
			Locations: []IncludedLocation{},
		},
	}
}

func (b *bundler) first(kind, id string) bool {
	key := kind + ":" + id
	if b.seen[key] {
		return false
	}
	b.seen[key] = true
	return true
}

func (b *bundler) add(row *domain.ReportRow) {
	if u := row.User; u != nil && b.first("user", u.ID) {
		b.bundle.Users = append(b.bundle.Users, IncludedUser{ID: u.ID, Name: u.FullName(), Email: u.Email})
	}
	if st := row.Store; st != nil && b.first("store", st.ID) {
		b.bundle.Stores = append(b.bundle.Stores, IncludedStore{
			ID:             st.ID,
			GeofenceRadius: st.GeofenceRadius,
			Location:       pointOf(st.Coordinate),
			IsActive:       st.IsActive,
			BrandID:        st.BrandID,
			LocationID:     st.LocationID,
		})
	}
	if br := row.Brand; br != nil && b.first("brand", br.ID) {
		b.bundle.Brands = append(b.bundle.Brands, IncludedBrand{ID: br.ID, Name: br.Name, Description: br.Description, Logo: br.Logo})
	}
	if l := row.Location; l != nil && b.first("location", l.ID) {
		b.bundle.Locations = append(b.bundle.Locations, IncludedLocation{
			ID: l.ID, Name: l.Name, Address: l.Address, City: l.City,
			State: l.State, Country: l.Country, PostalCode: l.PostalCode,
		})
	}
}
