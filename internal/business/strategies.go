package business

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/yanizio/bizdir/internal/backend"
	"github.com/yanizio/bizdir/internal/listing"
)

// Strategy names, also used as metric labels and Detail.Source.
const (
	SourceListings = "listings_search"
	SourceDirect   = "direct_fetch"
	SourceStatic   = "static_fallback"
)

/*──────────────────────────── listings search ─────────────────────────────*/

// RecordSource is satisfied by *listing.Fetcher.
type RecordSource interface {
	Records(ctx context.Context, ep listing.Endpoint, segment string) []listing.Record
}

// ListingsSearch scans the for-web listing set of the linked category.
type ListingsSearch struct {
	Listings RecordSource
}

func (ListingsSearch) Name() string { return SourceListings }

func (s ListingsSearch) Lookup(ctx context.Context, q Query) (*Detail, error) {
	seg := q.LastSegment()
	if seg == "" {
		return nil, ErrNotFound
	}
	for _, r := range s.Listings.Records(ctx, listing.EndpointSearchForWeb, seg) {
		if !r.Matches(q.ID) {
			continue
		}
		if r.Description == "" {
			r.Description = describe(r.Listing)
		}
		return &Detail{Record: r}, nil
	}
	return nil, ErrNotFound
}

// describe writes a one-line description for records that carry none.
func describe(l listing.Listing) string {
	where := l.Location
	if where == "" {
		where = "your area"
	}
	if len(l.Services) > 0 {
		return fmt.Sprintf("%s serves customers in %s, offering %s.",
			l.DisplayName, where, strings.Join(l.Services, ", "))
	}
	return fmt.Sprintf("%s serves customers in %s.", l.DisplayName, where)
}

/*──────────────────────────── direct fetch ────────────────────────────────*/

// ByID is satisfied by *backend.Client.
type ByID interface {
	Business(ctx context.Context, id string) ([]byte, error)
}

// DirectFetch asks get-business.php for the id.
type DirectFetch struct {
	Backend ByID
	Images  listing.Images
}

func (DirectFetch) Name() string { return SourceDirect }

func (s DirectFetch) Lookup(ctx context.Context, q Query) (*Detail, error) {
	body, err := s.Backend.Business(ctx, q.ID)
	if err != nil {
		if backend.IsStatus(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec, err := listing.DecodeRecord(body, s.Images)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if rec.ID == "" {
		rec.ID = q.ID
	}
	return &Detail{Record: rec}, nil
}

/*──────────────────────────── static fallback ─────────────────────────────*/

// StaticFallback serves fixed records for the development ids and a
// placeholder for anything else.  It never misses.
type StaticFallback struct {
	Fallback string
}

func (StaticFallback) Name() string { return SourceStatic }

func (s StaticFallback) Lookup(_ context.Context, q Query) (*Detail, error) {
	if r, ok := staticRecords[q.ID]; ok {
		r.Services = slices.Clone(r.Services)
		r.Reviews = slices.Clone(r.Reviews)
		r.Images = []string{s.Fallback}
		r.Keys = []string{q.ID}
		return &Detail{Record: r}, nil
	}

	where := q.Path()
	if where == "" {
		where = "the directory"
	}
	r := listing.Record{
		Listing: listing.Listing{
			ID:          q.ID,
			DisplayName: "Business " + q.ID,
			Location:    "Location not available",
			Services:    []string{},
			Images:      []string{s.Fallback},
			Description: fmt.Sprintf("Details for business %s listed under %s are not available yet.", q.ID, where),
		},
		Category: q.Path(),
		Keys:     []string{q.ID},
	}
	return &Detail{Record: r}, nil
}

var staticRecords = map[string]listing.Record{
	"121": {
		Listing: listing.Listing{
			ID:          "121",
			DisplayName: "Tata Motors Service Center",
			Location:    "Pune, Pune, Maharashtra",
			Phone:       "+91 20 2712 0000",
			Rating:      4.3,
			ReviewCount: 128,
			Services:    []string{"Vehicle Servicing", "Genuine Spare Parts", "Body Repair", "Roadside Assistance"},
			IsOpen:      true,
			Description: "Authorised Tata Motors service center offering scheduled maintenance, repairs, and genuine spare parts.",
		},
		Address:   "Mumbai-Pune Highway, Pimpri, Pune, Maharashtra 411018",
		Latitude:  18.6298,
		Longitude: 73.7997,
		Category:  "Automobile Services",
	},
	"122": {
		Listing: listing.Listing{
			ID:          "122",
			DisplayName: "Sunrise Family Clinic",
			Location:    "Nashik, Nashik, Maharashtra",
			Phone:       "+91 253 250 0000",
			Rating:      4.6,
			ReviewCount: 64,
			Services:    []string{"General Consultation", "Pediatrics", "Vaccination"},
			IsOpen:      true,
			Description: "Neighbourhood clinic offering general consultation, child care, and vaccinations.",
		},
		Address:   "College Road, Nashik, Maharashtra 422005",
		Latitude:  20.0059,
		Longitude: 73.7629,
		Category:  "Doctors",
	},
}
