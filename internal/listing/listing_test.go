package listing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yanizio/bizdir/internal/backend"
)

var testImages = Images{BaseURL: "https://cdn.example.test/uploads", Fallback: "/static/img/business-placeholder.jpg"}

func TestSelectParam(t *testing.T) {
	cases := []struct {
		in   string
		want Param
	}{
		{"child30", Param{"childrenId", "30"}},
		{"sub12", Param{"subcategoryId", "12"}},
		{"cat5", Param{"category", "5"}},
		{"plumbers", Param{"category", "plumbers"}},
		{"sub", Param{"category", "sub"}},
		{"catering", Param{"category", "catering"}},
		{"subway", Param{"category", "subway"}},
		{"children-clinic", Param{"category", "children-clinic"}},
		{"cat5a", Param{"category", "cat5a"}},
		{"", Param{"category", ""}},
	}
	for _, tc := range cases {
		if got := SelectParam(tc.in); got != tc.want {
			t.Errorf("SelectParam(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []any
	}{
		{"bare array", `[{"a":1}]`, []any{map[string]any{"a": float64(1)}}},
		{"data", `{"meta":[9],"data":[{"a":1}]}`, []any{map[string]any{"a": float64(1)}}},
		{"arbitrary object", `{"foo":[1,2],"bar":"x"}`, []any{float64(1), float64(2)}},
		{"document order", `{"z":[1],"a":[2]}`, []any{float64(1), float64(2)}},
		{"no arrays", `{"status":"ok"}`, []any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Unwrap([]byte(tc.body))
			if err != nil {
				t.Fatalf("Unwrap: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	for _, bad := range []string{``, `"text"`, `42`, `{"a":`} {
		if _, err := Unwrap([]byte(bad)); err == nil {
			t.Errorf("Unwrap(%q) should fail", bad)
		}
	}
}

func TestActiveKeepsOnlyNumericOne(t *testing.T) {
	list := []any{
		map[string]any{"status": float64(1), "id": "a"},
		map[string]any{"status": float64(0), "id": "b"},
		map[string]any{"status": "1", "id": "c"},
		map[string]any{"id": "d"},
		float64(1),
	}
	got := Active(list)
	if len(got) != 1 || got[0]["id"] != "a" {
		t.Errorf("Active = %v", got)
	}
}

func TestNormalize(t *testing.T) {
	raw := map[string]any{
		"id":            float64(7),
		"business_name": "Sharma Dental",
		"name":          "ignored",
		"city":          "Pune",
		"district":      "",
		"state":         "MH",
		"mobile":        "9876543210",
		"rating":        "4.5",
		"services":      "Cleaning, Braces ,",
		"image":         "/img/7.jpg",
		"is_open":       "1",
		"reviews":       []any{map[string]any{}, map[string]any{}},
	}
	want := Listing{
		ID:          "7",
		DisplayName: "Sharma Dental",
		Location:    "Pune, MH",
		Phone:       "9876543210",
		Rating:      4.5,
		ReviewCount: 2,
		Services:    []string{"Cleaning", "Braces"},
		Images:      []string{"https://cdn.example.test/uploads/img/7.jpg"},
		IsOpen:      true,
	}
	if diff := cmp.Diff(want, Normalize(raw, testImages)); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	got := Normalize(map[string]any{"images": []any{"https://x.test/a.png"}}, testImages)
	if got.DisplayName != "Unnamed Business" {
		t.Errorf("name = %q", got.DisplayName)
	}
	if diff := cmp.Diff([]string{"https://x.test/a.png"}, got.Images); diff != "" {
		t.Errorf("absolute image rewritten: %s", diff)
	}

	got = Normalize(map[string]any{}, testImages)
	if diff := cmp.Diff([]string{testImages.Fallback}, got.Images); diff != "" {
		t.Errorf("fallback image: %s", diff)
	}
}

func TestRecordMatches(t *testing.T) {
	r := NormalizeRecord(map[string]any{"business_id": float64(121), "user_id": "9"}, testImages)
	for _, id := range []string{"121", "9", " 121 "} {
		if !r.Matches(id) {
			t.Errorf("Matches(%q) = false", id)
		}
	}
	if r.Matches("") || r.Matches("12") {
		t.Error("unexpected match")
	}
}

func TestDecodeRecord(t *testing.T) {
	for _, body := range []string{
		`{"id":3,"name":"Cafe","latitude":"18.5","lng":73.8}`,
		`{"data":{"id":3,"name":"Cafe","latitude":"18.5","lng":73.8}}`,
		`{"data":[{"id":3,"name":"Cafe","latitude":"18.5","lng":73.8}]}`,
	} {
		r, err := DecodeRecord([]byte(body), testImages)
		if err != nil {
			t.Fatalf("DecodeRecord(%s): %v", body, err)
		}
		if r.ID != "3" || r.DisplayName != "Cafe" || r.Latitude != 18.5 || r.Longitude != 73.8 {
			t.Errorf("record = %+v", r)
		}
	}
	if _, err := DecodeRecord([]byte(`{"status":"error"}`), testImages); !errors.Is(err, ErrEnvelope) {
		t.Errorf("err = %v, want ErrEnvelope", err)
	}
}

func TestNormalizeDropsNonFiniteNumbers(t *testing.T) {
	r := NormalizeRecord(map[string]any{
		"id":         "4",
		"rating":     "NaN",
		"avg_rating": "3.5",
		"latitude":   "Inf",
		"lat":        "18.5",
		"longitude":  "-infinity",
	}, testImages)
	if r.Rating != 3.5 || r.Latitude != 18.5 || r.Longitude != 0 {
		t.Fatalf("record = %+v", r)
	}
	if _, err := json.Marshal(r); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}

/*──────────────────────────── fetcher ─────────────────────────────────────*/

type fakeSource struct {
	body                  []byte
	err                   error
	gotPath, gotK, gotVal string
}

func (f *fakeSource) Listings(_ context.Context, path, key, value string) ([]byte, error) {
	f.gotPath, f.gotK, f.gotVal = path, key, value
	return f.body, f.err
}

func TestFetchFiltersAndNormalizes(t *testing.T) {
	src := &fakeSource{body: []byte(`{"data":[
		{"status":1,"businessName":"X","city":"A","district":"B","state":"C"},
		{"status":0,"businessName":"Y"}]}`)}
	f := NewFetcher(src, testImages)

	got := f.Fetch(context.Background(), EndpointSearch, "sub12")
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].DisplayName != "X" || got[0].Location != "A, B, C" {
		t.Errorf("listing = %+v", got[0])
	}
	if src.gotPath != backend.PathListings || src.gotK != "subcategoryId" || src.gotVal != "12" {
		t.Errorf("request = %s %s=%s", src.gotPath, src.gotK, src.gotVal)
	}
}

func TestFetchNeverFails(t *testing.T) {
	cases := map[string]*fakeSource{
		"network": {err: errors.New("dial tcp: connection refused")},
		"status":  {err: &backend.StatusError{Endpoint: backend.PathListings, Code: 500}},
		"garbage": {body: []byte(`<html>oops</html>`)},
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			got := NewFetcher(src, testImages).Fetch(context.Background(), EndpointSearch, "cat5")
			if got == nil || len(got) != 0 {
				t.Errorf("got %#v, want empty slice", got)
			}
		})
	}
}

func TestRecordsUsesForWebEndpoint(t *testing.T) {
	src := &fakeSource{body: []byte(`[{"status":1,"id":"121","name":"Garage","address":"MG Road"}]`)}
	recs := NewFetcher(src, testImages).Records(context.Background(), EndpointSearchForWeb, "child30")
	if len(recs) != 1 || recs[0].Address != "MG Road" || !recs[0].Matches("121") {
		t.Fatalf("records = %+v", recs)
	}
	if src.gotPath != backend.PathListingsForWeb || src.gotK != "childrenId" {
		t.Errorf("request = %s %s", src.gotPath, src.gotK)
	}
}
