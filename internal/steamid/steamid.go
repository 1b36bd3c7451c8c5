// Package steamid parses and validates the textual forms of a Steam
// account identifier: the legacy "STEAM_X:Y:Z" form, the bracketed
// "[U:1:N]" form and the raw 64-bit number.
package steamid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Universe identifies the Steam realm an account belongs to.
type Universe uint8

const (
	UniverseInvalid Universe = iota
	UniversePublic
	UniverseBeta
	UniverseInternal
	UniverseDev
)

// AccountType is the kind of account encoded in an ID.
type AccountType uint8

const (
	TypeInvalid AccountType = iota
	TypeIndividual
	TypeMultiseat
	TypeGameServer
	TypeAnonGameServer
	TypePending
	TypeContentServer
	TypeClan
	TypeChat
	TypeP2PSuperSeeder
	TypeAnonUser
)

// Instance values used by individual accounts and chats.
const (
	InstanceAll     uint32 = 0
	InstanceDesktop uint32 = 1
	InstanceConsole uint32 = 2
	InstanceWeb     uint32 = 4

	instanceMask         uint32 = 0x000FFFFF
	chatInstanceClan     uint32 = (instanceMask + 1) >> 1
	chatInstanceLobby    uint32 = (instanceMask + 1) >> 2
	chatInstanceMMSLobby uint32 = (instanceMask + 1) >> 3
)

// ErrInvalidFormat is returned when the input matches none of the
// supported textual forms.
var ErrInvalidFormat = errors.New("steamid: unrecognized format")

var (
	canonicalPattern = regexp.MustCompile(`^7656[0-9]{13}$`)
	steam2Pattern    = regexp.MustCompile(`^STEAM_([0-5]):([0-1]):([0-9]+)$`)
	steam3Pattern    = regexp.MustCompile(`^\[([a-zA-Z]):([0-5]):([0-9]+)(:[0-9]+)?\]$`)
	digitsPattern    = regexp.MustCompile(`^[0-9]+$`)
)

var typeLetters = map[AccountType]string{
	TypeInvalid:        "I",
	TypeIndividual:     "U",
	TypeMultiseat:      "M",
	TypeGameServer:     "G",
	TypeAnonGameServer: "A",
	TypePending:        "P",
	TypeContentServer:  "C",
	TypeClan:           "g",
	TypeChat:           "T",
	TypeAnonUser:       "a",
}

// ID is a decoded Steam identifier.
type ID struct {
	Universe  Universe
	Type      AccountType
	Instance  uint32
	AccountID uint32
}

// IsCanonical reports whether s is already a 64-bit individual ID in
// the public universe ("7656" followed by 13 digits).
func IsCanonical(s string) bool {
	return canonicalPattern.MatchString(s)
}

// Parse decodes s from any supported textual form. It does not check
// semantic validity; use Valid for that.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)

	if m := steam2Pattern.FindStringSubmatch(s); m != nil {
		universe, _ := strconv.ParseUint(m[1], 10, 8)
		authBit, _ := strconv.ParseUint(m[2], 10, 32)
		account, err := strconv.ParseUint(m[3], 10, 32)
		if err != nil {
			return ID{}, fmt.Errorf("steamid: account number out of range: %w", err)
		}
		if universe == 0 {
			universe = uint64(UniversePublic)
		}
		return ID{
			Universe:  Universe(universe),
			Type:      TypeIndividual,
			Instance:  InstanceDesktop,
			AccountID: uint32(account*2 + authBit),
		}, nil
	}

	if m := steam3Pattern.FindStringSubmatch(s); m != nil {
		return parseSteam3(m)
	}

	if digitsPattern.MatchString(s) {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return ID{}, fmt.Errorf("steamid: numeric id out of range: %w", err)
		}
		return FromUint64(v), nil
	}

	return ID{}, ErrInvalidFormat
}

func parseSteam3(m []string) (ID, error) {
	universe, _ := strconv.ParseUint(m[2], 10, 8)
	account, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return ID{}, fmt.Errorf("steamid: account number out of range: %w", err)
	}
	id := ID{Universe: Universe(universe), AccountID: uint32(account)}

	letter := m[1]
	switch letter {
	case "c":
		id.Type = TypeChat
		id.Instance |= chatInstanceClan
	case "L":
		id.Type = TypeChat
		id.Instance |= chatInstanceLobby
	default:
		id.Type = TypeInvalid
		for t, l := range typeLetters {
			if l == letter {
				id.Type = t
				break
			}
		}
	}

	if m[4] != "" {
		instance, err := strconv.ParseUint(m[4][1:], 10, 32)
		if err != nil {
			return ID{}, fmt.Errorf("steamid: instance out of range: %w", err)
		}
		id.Instance = uint32(instance)
	} else if id.Type == TypeIndividual {
		id.Instance = InstanceDesktop
	}
	return id, nil
}

// FromUint64 splits a packed 64-bit ID into its fields.
func FromUint64(v uint64) ID {
	return ID{
		Universe:  Universe(v >> 56),
		Type:      AccountType((v >> 52) & 0xF),
		Instance:  uint32((v >> 32) & uint64(instanceMask)),
		AccountID: uint32(v),
	}
}

// Uint64 packs the ID into its 64-bit form.
func (id ID) Uint64() uint64 {
	return uint64(id.Universe)<<56 |
		uint64(id.Type)<<52 |
		uint64(id.Instance&instanceMask)<<32 |
		uint64(id.AccountID)
}

// String64 returns the decimal 64-bit form used by the Web API.
func (id ID) String64() string {
	return strconv.FormatUint(id.Uint64(), 10)
}

// Steam2 renders the legacy "STEAM_X:Y:Z" form. The universe digit is
// always 0 for public accounts, matching what Valve's own tools print.
func (id ID) Steam2() string {
	universe := id.Universe
	if universe == UniversePublic {
		universe = UniverseInvalid
	}
	return fmt.Sprintf("STEAM_%d:%d:%d", universe, id.AccountID&1, id.AccountID>>1)
}

// Steam3 renders the bracketed "[U:1:N]" form.
func (id ID) Steam3() string {
	letter, ok := typeLetters[id.Type]
	if !ok {
		letter = "i"
	}
	if id.Type == TypeChat {
		switch {
		case id.Instance&chatInstanceClan != 0:
			letter = "c"
		case id.Instance&chatInstanceLobby != 0:
			letter = "L"
		}
	}

	withInstance := id.Type == TypeAnonGameServer || id.Type == TypeMultiseat ||
		(id.Type == TypeIndividual && id.Instance != InstanceDesktop)
	if withInstance {
		return fmt.Sprintf("[%s:%d:%d:%d]", letter, id.Universe, id.AccountID, id.Instance)
	}
	return fmt.Sprintf("[%s:%d:%d]", letter, id.Universe, id.AccountID)
}

// Valid reports whether the ID describes an account Steam could have
// issued.
func (id ID) Valid() bool {
	if id.Type <= TypeInvalid || id.Type > TypeAnonUser {
		return false
	}
	if id.Universe <= UniverseInvalid || id.Universe > UniverseDev {
		return false
	}
	switch id.Type {
	case TypeIndividual:
		if id.AccountID == 0 || id.Instance > InstanceWeb {
			return false
		}
	case TypeClan:
		if id.AccountID == 0 || id.Instance != InstanceAll {
			return false
		}
	case TypeGameServer:
		if id.AccountID == 0 {
			return false
		}
	}
	return true
}
