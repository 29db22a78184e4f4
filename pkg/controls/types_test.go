package controls

import (
	"reflect"
	"sort"
	"testing"
)

func TestParseFlatShape(t *testing.T) {
	m, err := Parse("controls.json", []byte(`{
		"soc2.PeopleCheck.test_roster": ["soc2", "iso27001"]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := m.GetAccreditations("soc2.PeopleCheck.test_roster")
	want := []string{"iso27001", "soc2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetAccreditations = %v, want %v", got, want)
	}
}

func TestParseNestedShape(t *testing.T) {
	m, err := Parse("controls.json", []byte(`{
		"soc2.PeopleCheck.test_roster": {
			"cloud": {"aws": ["soc2"], "gcp": ["iso27001"]}
		}
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := m.GetAccreditations("soc2.PeopleCheck.test_roster")
	want := []string{"iso27001", "soc2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetAccreditations = %v, want %v", got, want)
	}
}

func TestIsTestIncluded(t *testing.T) {
	m, err := Parse("controls.json", []byte(`{
		"a.test_x": ["soc2"],
		"b.test_y": ["iso27001"]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !m.IsTestIncluded("a.test_x", []string{"soc2", "iso27001"}) {
		t.Error("expected a.test_x to be included for soc2")
	}
	if m.IsTestIncluded("a.test_x", []string{"iso27001"}) {
		t.Error("expected a.test_x to be excluded for iso27001 alone")
	}
	if m.IsTestIncluded("c.test_z", nil) {
		t.Error("expected unknown check id to be excluded")
	}
}

func TestAccredChecks(t *testing.T) {
	m, err := Parse("controls.json", []byte(`{
		"a.test_x": ["soc2"],
		"b.test_y": ["soc2", "iso27001"]
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	checks := m.AccredChecks()
	soc2 := checks["soc2"]
	sort.Strings(soc2)
	want := []string{"a.test_x", "b.test_y"}
	if !reflect.DeepEqual(soc2, want) {
		t.Errorf("AccredChecks()[soc2] = %v, want %v", soc2, want)
	}
	if len(checks["iso27001"]) != 1 || checks["iso27001"][0] != "b.test_y" {
		t.Errorf("AccredChecks()[iso27001] = %v", checks["iso27001"])
	}
}

func TestParseInvalidShapeErrors(t *testing.T) {
	if _, err := Parse("controls.json", []byte(`{"a.test_x": 5}`)); err == nil {
		t.Fatal("expected error for non-list, non-object value")
	}
}
