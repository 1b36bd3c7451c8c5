package steamid

import (
	"errors"
	"testing"
)

func TestParse_EquivalentForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"steam2", "STEAM_0:1:23584097", "76561198007433923"},
		{"steam2 universe 1", "STEAM_1:1:23584097", "76561198007433923"},
		{"steam3", "[U:1:47168195]", "76561198007433923"},
		{"steam64", "76561198007433923", "76561198007433923"},
		{"second account steam2", "STEAM_0:0:542092900", "76561199044451528"},
		{"second account steam3", "[U:1:1084185800]", "76561199044451528"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if !id.Valid() {
				t.Fatalf("Parse(%q) produced invalid id %+v", tt.input, id)
			}
			if got := id.String64(); got != tt.want {
				t.Errorf("Parse(%q).String64() = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, input := range []string{"", "Pho3niX90", "null/*-/-*", "STEAM_9:1:1", "[U:1]", "STEAM_0:2:5"} {
		if _, err := Parse(input); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidFormat", input, err)
		}
	}
}

func TestParse_ShortNumberIsInvalid(t *testing.T) {
	id, err := Parse("12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Valid() {
		t.Errorf("expected short numeric id to be invalid, got %+v", id)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		id   ID
		want bool
	}{
		{"individual", ID{UniversePublic, TypeIndividual, InstanceDesktop, 10}, true},
		{"individual zero account", ID{UniversePublic, TypeIndividual, InstanceDesktop, 0}, false},
		{"individual bad instance", ID{UniversePublic, TypeIndividual, 7, 10}, false},
		{"clan", ID{UniversePublic, TypeClan, InstanceAll, 10}, true},
		{"clan with instance", ID{UniversePublic, TypeClan, InstanceDesktop, 10}, false},
		{"gameserver zero account", ID{UniversePublic, TypeGameServer, 0, 0}, false},
		{"invalid universe", ID{UniverseInvalid, TypeIndividual, InstanceDesktop, 10}, false},
		{"invalid type", ID{UniversePublic, TypeInvalid, 0, 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRendering(t *testing.T) {
	id, err := Parse("76561198007433923")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := id.Steam2(); got != "STEAM_0:1:23584097" {
		t.Errorf("Steam2() = %s", got)
	}
	if got := id.Steam3(); got != "[U:1:47168195]" {
		t.Errorf("Steam3() = %s", got)
	}

	clan, err := Parse("[g:1:4]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !clan.Valid() || clan.Steam3() != "[g:1:4]" {
		t.Errorf("unexpected clan round trip: %+v %s", clan, clan.Steam3())
	}
}

func TestIsCanonical(t *testing.T) {
	tests := map[string]bool{
		"76561198007433923":  true,
		"7656119800743392":   false,
		"765611980074339231": false,
		"86561198007433923":  false,
		"STEAM_0:1:23584097": false,
	}
	for input, want := range tests {
		if got := IsCanonical(input); got != want {
			t.Errorf("IsCanonical(%q) = %v, want %v", input, got, want)
		}
	}
}
