package routing

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"  Hello   World! ", "hello-world"},
		{"", ""},
		{"a--b", "a-b"},
		{"Doctors & Clinics", "doctors-clinics"},
		{"-Hair_Salon-", "hair_salon"},
		{"Café Noir", "caf-noir"},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDeslugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"bar-baz", "Bar Baz"},
		{"doctors", "Doctors"},
		{"", ""},
		{"--", ""},
		{"car-service-center", "Car Service Center"},
	}
	for _, c := range cases {
		if got := Deslugify(c.in); got != c.want {
			t.Errorf("Deslugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildPath(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, "/"},
		{[]string{"category", "doctors/cat5"}, "/category/doctors/cat5"},
		{[]string{"/business/", "", "121"}, "/business/121"},
	}
	for _, c := range cases {
		if got := BuildPath(c.in...); got != c.want {
			t.Errorf("BuildPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
