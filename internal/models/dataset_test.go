package models

import "testing"

func TestDatasetNames(t *testing.T) {
	tests := []struct {
		name            string
		qualified       string
		wantShort       string
		wantCategory    string
		wantStewardship string
	}{
		{
			name:            "standard three-part name",
			qualified:       "SGID10.BIOSCIENCE.Habitat_Pigeon",
			wantShort:       "Habitat_Pigeon",
			wantCategory:    "Bioscience",
			wantStewardship: "BIOSCIENCE.Habitat_Pigeon",
		},
		{
			name:            "water category",
			qualified:       "SGID10.WATER.StreamsNHDHighRes",
			wantShort:       "StreamsNHDHighRes",
			wantCategory:    "Water",
			wantStewardship: "WATER.StreamsNHDHighRes",
		},
		{
			name:            "bare name",
			qualified:       "Roads",
			wantShort:       "Roads",
			wantCategory:    "",
			wantStewardship: "Roads",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Dataset{QualifiedName: tt.qualified}
			if got := d.ShortName(); got != tt.wantShort {
				t.Errorf("ShortName() = %q, want %q", got, tt.wantShort)
			}
			if got := d.Category(); got != tt.wantCategory {
				t.Errorf("Category() = %q, want %q", got, tt.wantCategory)
			}
			if got := d.StewardshipName(); got != tt.wantStewardship {
				t.Errorf("StewardshipName() = %q, want %q", got, tt.wantStewardship)
			}
		})
	}
}

func TestGroupsResult(t *testing.T) {
	ok := GroupsResult{Groups: []Group{{ID: "a", Title: "AGRC Shelf"}, {ID: "b", Title: "Utah SGID Water"}}}
	if ok.Failed() {
		t.Error("Failed() = true for successful lookup")
	}
	titles := ok.Titles()
	if len(titles) != 2 || titles[0] != "AGRC Shelf" || titles[1] != "Utah SGID Water" {
		t.Errorf("Titles() = %v", titles)
	}

	failed := GroupsResult{Err: errFake}
	if !failed.Failed() {
		t.Error("Failed() = false for failed lookup")
	}
	if len(failed.Titles()) != 0 {
		t.Errorf("Titles() on failed lookup = %v, want empty", failed.Titles())
	}
}

type fakeErr struct{}

func (fakeErr) Error() string { return "permission denied" }

var errFake = fakeErr{}
