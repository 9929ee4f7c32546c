package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"test@example.com", "user.name+1@domain.co", "a@b.cd"}
	invalid := []string{"test@", "@example.com", "test@.com", "test@com", "test@domain", " ", ""}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = false, want true", email)
		}
	}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = true, want false", email)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // valid UUIDv7
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B", // valid UUIDv7 (uppercase)
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // not v7
		"123E4567-E89B-12D3-A456-426614174000", // not v7
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // invalid hex
		"",                                     // empty
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestMinLength(t *testing.T) {
	cases := []struct {
		input string
		n     int
		want  bool
	}{
		{"long enough note", 10, true},
		{"   short   ", 10, false},
		{"àèìòùàèìòù", 10, true},
		{"", 0, true},
	}
	for _, c := range cases {
		if got := MinLength(c.input, c.n); got != c.want {
			t.Errorf("MinLength(%q, %d) = %v, want %v", c.input, c.n, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidMonth(t *testing.T) {
	valid := []string{"2026-01", "2025-12"}
	invalid := []string{"2026-13", "2026/01", "202601", ""}
	for _, s := range valid {
		if _, ok := IsValidMonth(s); !ok {
			t.Errorf("IsValidMonth(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidMonth(s); ok {
			t.Errorf("IsValidMonth(%q) = true, want false", s)
		}
	}
}

func TestIsValidClock(t *testing.T) {
	valid := []string{"09:00", "23:59:59", "00:00"}
	invalid := []string{"24:00", "9:00", "12:5", "noon", ""}
	for _, s := range valid {
		if !IsValidClock(s) {
			t.Errorf("IsValidClock(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidClock(s) {
			t.Errorf("IsValidClock(%q) = true, want false", s)
		}
	}
}

func TestIsValidCoordinates(t *testing.T) {
	cases := []struct {
		lat, lng float64
		want     bool
	}{
		{45.4642, 9.19, true},
		{-90, 180, true},
		{90.1, 0, false},
		{0, -180.5, false},
	}
	for _, c := range cases {
		if got := IsValidCoordinates(c.lat, c.lng); got != c.want {
			t.Errorf("IsValidCoordinates(%v, %v) = %v, want %v", c.lat, c.lng, got, c.want)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "email", Message: "invalid"},
		{Field: "check_in_time", Message: "required"},
	}
	got := errs.Error()
	want := "email: invalid; check_in_time: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "email", Message: "invalid"},
		{Field: "check_in_time", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"email": "invalid", "check_in_time": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
