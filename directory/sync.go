package directory

import (
	"encoding/json"
	"fmt"
)

// UsersTopic is the topic of the directory sync feed.
const UsersTopic = "TetraUsers:info"

// Record is one user on the directory sync feed. The icon characters are sent as numbers.
type Record struct {
	TSI     string   `json:"tsi"`
	Call    string   `json:"call"`
	Name    string   `json:"name"`
	Tab     IconChar `json:"tab"`
	Sym     IconChar `json:"sym"`
	Comment string   `json:"comment"`
}

// IconChar is one character of a map icon. It is written as number and read from a number or a one character string.
type IconChar byte

func (c IconChar) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(c))
}

func (c *IconChar) UnmarshalJSON(data []byte) error {
	var number int
	if err := json.Unmarshal(data, &number); err == nil {
		if number < 0 || number > 255 {
			return fmt.Errorf("icon character %d out of range", number)
		}
		*c = IconChar(number)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("icon character must be a number or a string: %s", data)
	}
	switch len(s) {
	case 0:
		*c = 0
	case 1:
		*c = IconChar(s[0])
	default:
		return fmt.Errorf("icon character %q too long", s)
	}
	return nil
}

// Export returns the JSON array of all users as published on the directory sync feed.
func (d *Directory) Export() ([]byte, error) {
	users := d.All()
	records := make([]Record, 0, len(users))
	for _, u := range users {
		records = append(records, Record{
			TSI:     u.TSI,
			Call:    u.Call,
			Name:    u.Name,
			Tab:     IconChar(u.Icon.Tab),
			Sym:     IconChar(u.Icon.Sym),
			Comment: u.Comment,
		})
	}
	return json.Marshal(records)
}

// Merge reads a JSON array of users from the directory sync feed. Each TSI is passed through normalize before
// it is looked up. The identity of known users is overwritten, their activity, position and state are kept.
// It returns the number of merged users.
func (d *Directory) Merge(data []byte, normalize func(string) string) (int, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("cannot parse %s: %w", UsersTopic, err)
	}

	merged := 0
	for _, r := range records {
		if r.TSI == "" {
			continue
		}
		tsi := normalize(r.TSI)
		user, ok := d.users[tsi]
		if !ok {
			user = d.Add(User{TSI: tsi})
		}
		user.Call = r.Call
		user.Name = r.Name
		user.Icon = Icon{Sym: byte(r.Sym), Tab: byte(r.Tab)}
		user.Comment = r.Comment
		merged++
	}
	return merged, nil
}
