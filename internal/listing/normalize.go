// internal/listing/normalize.go
//
// Normalisation of loosely typed backend records.
//
// Context
// -------
// Listing records come from several PHP scripts that never agreed on field
// names: the business name may be `businessName`, `business_name`,
// `displayName`, or `name`, ratings may be numbers or numeric strings, and
// images may be an array, a comma list, or a single path.  Each field below
// has an ordered precedence list; the first key holding a usable value wins.
// The raw map never leaves this package.
//
// Notes
// -----
// • Relative image paths are prefixed with Images.BaseURL.
// • Location is `city, district, state` with empty parts skipped.
// • Oxford commas, two spaces after periods.

package listing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Listing is the normalised card shown on category pages.
type Listing struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Location    string   `json:"location"`
	Phone       string   `json:"phone,omitempty"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
	Services    []string `json:"services"`
	Images      []string `json:"images"`
	IsOpen      bool     `json:"isOpen"`
	Description string   `json:"description,omitempty"`
}

// Review is one published review attached to a record.
type Review struct {
	Author  string  `json:"author"`
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
	Date    string  `json:"date,omitempty"`
}

// Record is a Listing plus the detail-page fields.  Keys holds every id the
// record answers to.
type Record struct {
	Listing
	Address   string   `json:"address,omitempty"`
	Latitude  float64  `json:"latitude,omitempty"`
	Longitude float64  `json:"longitude,omitempty"`
	Email     string   `json:"email,omitempty"`
	Website   string   `json:"website,omitempty"`
	Category  string   `json:"category,omitempty"`
	Reviews   []Review `json:"reviews,omitempty"`
	Keys      []string `json:"-"`
}

// Images controls image URL rewriting.
type Images struct {
	BaseURL  string
	Fallback string
}

// Precedence lists.
var (
	idKeys          = []string{"id", "business_id", "user_id", "businessId"}
	nameKeys        = []string{"businessName", "business_name", "displayName", "display_name", "name", "company_name"}
	phoneKeys       = []string{"phone", "mobile", "phone_number", "contact", "contact_number"}
	ratingKeys      = []string{"averageRating", "average_rating", "rating", "avg_rating"}
	reviewCountKeys = []string{"reviewCount", "review_count", "totalReviews", "total_reviews", "reviews_count"}
	serviceKeys     = []string{"services", "service", "tags"}
	imageKeys       = []string{"images", "image", "business_image", "profile_image", "logo", "photo"}
	openKeys        = []string{"isOpen", "is_open", "open_now", "open"}
	descKeys        = []string{"description", "about", "business_description", "details"}
	addressKeys     = []string{"address", "business_address", "full_address"}
	latKeys         = []string{"latitude", "lat"}
	lngKeys         = []string{"longitude", "lng", "lon"}
	emailKeys       = []string{"email", "business_email"}
	websiteKeys     = []string{"website", "website_url", "url"}
	categoryKeys    = []string{"category_name", "subcategory_name", "category"}
	locationKeys    = []string{"city", "district", "state"}
)

// Normalize maps raw onto a Listing.
func Normalize(raw map[string]any, img Images) Listing {
	l := Listing{
		ID:          firstString(raw, idKeys),
		DisplayName: firstString(raw, nameKeys),
		Location:    location(raw),
		Phone:       firstString(raw, phoneKeys),
		Rating:      firstFloat(raw, ratingKeys),
		Services:    stringList(first(raw, serviceKeys)),
		Images:      images(raw, img),
		IsOpen:      firstBool(raw, openKeys),
		Description: firstString(raw, descKeys),
	}
	if l.DisplayName == "" {
		l.DisplayName = "Unnamed Business"
	}

	if n, ok := toFloat(first(raw, reviewCountKeys)); ok {
		l.ReviewCount = int(n)
	} else if rs, ok := raw["reviews"].([]any); ok {
		l.ReviewCount = len(rs)
	}
	return l
}

// NormalizeRecord maps raw onto a Record.
func NormalizeRecord(raw map[string]any, img Images) Record {
	r := Record{
		Listing:   Normalize(raw, img),
		Address:   firstString(raw, addressKeys),
		Latitude:  firstFloat(raw, latKeys),
		Longitude: firstFloat(raw, lngKeys),
		Email:     firstString(raw, emailKeys),
		Website:   firstString(raw, websiteKeys),
		Category:  firstString(raw, categoryKeys),
		Reviews:   reviews(raw["reviews"]),
	}
	for _, k := range idKeys {
		if id := text(raw[k]); id != "" {
			r.Keys = append(r.Keys, id)
		}
	}
	if r.Address == "" {
		r.Address = r.Location
	}
	return r
}

// Matches reports whether the record answers to id.  Ids are compared as
// strings so 121 and "121" agree.
func (r Record) Matches(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	for _, k := range r.Keys {
		if k == id {
			return true
		}
	}
	return false
}

// DecodeRecord accepts a bare object, `{data:{…}}`, or `{data:[{…}]}` and
// normalises it.
func DecodeRecord(body []byte, img Images) (Record, error) {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return Record{}, fmt.Errorf("listing: decode record: %w", err)
	}

	raw := root
	switch d := root["data"].(type) {
	case map[string]any:
		raw = d
	case []any:
		if len(d) == 0 {
			return Record{}, ErrEnvelope
		}
		m, ok := d[0].(map[string]any)
		if !ok {
			return Record{}, ErrEnvelope
		}
		raw = m
	}

	if firstString(raw, idKeys) == "" && firstString(raw, nameKeys) == "" {
		return Record{}, ErrEnvelope
	}
	return NormalizeRecord(raw, img), nil
}

/*──────────────────────────── field helpers ───────────────────────────────*/

func first(m map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s := text(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(m map[string]any, keys []string) float64 {
	for _, k := range keys {
		if f, ok := toFloat(m[k]); ok {
			return f
		}
	}
	return 0
}

func firstBool(m map[string]any, keys []string) bool {
	for _, k := range keys {
		switch t := m[k].(type) {
		case bool:
			return t
		case float64:
			return t != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "1", "true", "yes", "open":
				return true
			case "0", "false", "no", "closed":
				return false
			}
		}
	}
	return false
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// toFloat rejects NaN and ±Inf, which encoding/json cannot emit.
func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stringList accepts ["a","b"], "a, b", or [{"name":"a"}].
func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		for _, p := range strings.Split(t, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	case []any:
		for _, item := range t {
			switch it := item.(type) {
			case map[string]any:
				if s := firstString(it, []string{"name", "service_name", "title"}); s != "" {
					out = append(out, s)
				}
			default:
				if s := text(it); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func location(m map[string]any) string {
	parts := make([]string, 0, len(locationKeys))
	for _, k := range locationKeys {
		if s := text(m[k]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func images(m map[string]any, img Images) []string {
	paths := stringList(first(m, imageKeys))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, absImage(p, img.BaseURL))
	}
	if len(out) == 0 && img.Fallback != "" {
		out = append(out, img.Fallback)
	}
	return out
}

func absImage(p, base string) string {
	if base == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") || strings.HasPrefix(p, "//") {
		return p
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

func reviews(v any) []Review {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Review, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := Review{
			Author:  firstString(m, []string{"user_name", "name", "author", "reviewer"}),
			Rating:  firstFloat(m, []string{"rating", "stars"}),
			Comment: firstString(m, []string{"comment", "review", "text"}),
			Date:    firstString(m, []string{"created_at", "date"}),
		}
		if r.Author == "" {
			r.Author = "Anonymous"
		}
		out = append(out, r)
	}
	return out
}
