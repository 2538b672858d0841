// Package directory keeps the TETRA users known to the engine, keyed by their 17-digit TSI.
package directory

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kikosgc/svxlink/sds"
)

// Placeholders for users that were not configured and showed up on the air.
const (
	NoCall    = "NoCall"
	NoName    = "NoName"
	NoComment = "NN"
)

// DefaultIcon is used for unknown users if no other icon is configured.
var DefaultIcon = Icon{Sym: '/', Tab: 'e'}

// ParseIcon parses a two character map icon, e.g. "/e".
func ParseIcon(s string) (Icon, error) {
	if len(s) != 2 {
		return Icon{}, fmt.Errorf("map icon %q must have exactly 2 characters", s)
	}
	return Icon{Sym: s[0], Tab: s[1]}, nil
}

// Icon is the map icon of a user. Sym goes between latitude and longitude of a position report, Tab after the longitude.
type Icon struct {
	Sym byte
	Tab byte
}

func (i Icon) String() string {
	return string([]byte{i.Sym, i.Tab})
}

// User is a TETRA subscriber.
type User struct {
	TSI              string
	Call             string
	Name             string
	Icon             Icon
	Comment          string
	LastActivity     time.Time
	SentLastSDS      time.Time
	Latitude         float64
	Longitude        float64
	State            sds.Status
	ReasonForSending sds.ReasonForSending
}

// Placeholder indicates if this user was created on first contact and not configured.
func (u *User) Placeholder() bool {
	return u.Call == NoCall
}

// Directory maps TSIs to users. Users are never removed.
type Directory struct {
	users       map[string]*User
	defaultIcon Icon
}

// New returns an empty directory that uses the given icon for placeholder users.
func New(defaultIcon Icon) *Directory {
	return &Directory{
		users:       make(map[string]*User),
		defaultIcon: defaultIcon,
	}
}

// Add stores the given user, replacing any user with the same TSI.
func (d *Directory) Add(user User) *User {
	u := user
	d.users[u.TSI] = &u
	return &u
}

// Lookup returns the user with the given TSI.
func (d *Directory) Lookup(tsi string) (*User, bool) {
	result, ok := d.users[tsi]
	return result, ok
}

// Call returns the callsign of the user with the given TSI, or an empty string.
func (d *Directory) Call(tsi string) string {
	if u, ok := d.users[tsi]; ok {
		return u.Call
	}
	return ""
}

// Ensure returns the user with the given TSI. Unknown users are created with placeholders, created is true then.
func (d *Directory) Ensure(tsi string) (user *User, created bool) {
	if u, ok := d.users[tsi]; ok {
		return u, false
	}
	return d.Add(User{
		TSI:     tsi,
		Call:    NoCall,
		Name:    NoName,
		Comment: NoComment,
		Icon:    d.defaultIcon,
	}), true
}

// All returns all users ordered by TSI.
func (d *Directory) All() []*User {
	result := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		result = append(result, u)
	}
	slices.SortFunc(result, func(a, b *User) int {
		return strings.Compare(a.TSI, b.TSI)
	})
	return result
}

// Others returns all users ordered by TSI except the ones with the given TSIs and users without TSI.
func (d *Directory) Others(excluded ...string) []*User {
	result := d.All()
	return slices.DeleteFunc(result, func(u *User) bool {
		return u.TSI == "" || slices.Contains(excluded, u.TSI)
	})
}

// Len returns the number of users.
func (d *Directory) Len() int {
	return len(d.users)
}
