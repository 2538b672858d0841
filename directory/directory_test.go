package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikosgc/svxlink/tetra"
)

var addressing = tetra.Addressing{MCC: 901, MNC: 16383}

func TestParseIcon(t *testing.T) {
	actual, err := ParseIcon("/e")
	assert.NoError(t, err)
	assert.Equal(t, Icon{Sym: '/', Tab: 'e'}, actual)
	assert.Equal(t, "/e", actual.String())

	_, err = ParseIcon("/")
	assert.Error(t, err)
	_, err = ParseIcon(`\r\`)
	assert.Error(t, err)
}

func TestDirectory_Ensure(t *testing.T) {
	directory := New(Icon{Sym: '\\', Tab: 'r'})
	directory.Add(User{TSI: "09011638300023404", Call: "DL1ABC", Name: "Anna"})

	known, created := directory.Ensure("09011638300023404")
	assert.False(t, created)
	assert.Equal(t, "DL1ABC", known.Call)
	assert.False(t, known.Placeholder())

	unknown, created := directory.Ensure("09011638300023405")
	assert.True(t, created)
	assert.Equal(t, User{
		TSI:     "09011638300023405",
		Call:    NoCall,
		Name:    NoName,
		Comment: NoComment,
		Icon:    Icon{Sym: '\\', Tab: 'r'},
	}, *unknown)
	assert.True(t, unknown.Placeholder())

	again, created := directory.Ensure("09011638300023405")
	assert.False(t, created)
	assert.Same(t, unknown, again)
	assert.Equal(t, 2, directory.Len())
}

func TestDirectory_Others(t *testing.T) {
	directory := New(DefaultIcon)
	for _, tsi := range []string{"09011638300000003", "09011638300000001", "", "09011638300000002"} {
		directory.Add(User{TSI: tsi})
	}

	others := directory.Others("09011638300000002")

	var actual []string
	for _, u := range others {
		actual = append(actual, u.TSI)
	}
	assert.Equal(t, []string{"09011638300000001", "09011638300000003"}, actual)
	assert.Equal(t, "", directory.Call("09011638300000009"))
}

func TestDirectory_Export(t *testing.T) {
	directory := New(DefaultIcon)
	directory.Add(User{TSI: "09011638300023404", Call: "DL1ABC", Name: "Anna", Icon: Icon{Sym: '/', Tab: 'e'}, Comment: "mobile"})

	actual, err := directory.Export()

	assert.NoError(t, err)
	assert.JSONEq(t, `[{"tsi":"09011638300023404","call":"DL1ABC","name":"Anna","tab":101,"sym":47,"comment":"mobile"}]`, string(actual))
}

func TestDirectory_Merge(t *testing.T) {
	lastActivity := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	directory := New(DefaultIcon)
	existing := directory.Add(User{TSI: "09011638300023404", Call: "NoCall", LastActivity: lastActivity, Latitude: 51.5})

	merged, err := directory.Merge([]byte(`[
		{"tsi":"09011638300023404","call":"DL1ABC","name":"Anna","tab":101,"sym":47,"comment":"mobile"},
		{"tsi":"09011638300023405","call":"DL2XYZ","name":"Bert","tab":"r","sym":"\\","comment":""},
		{"tsi":"","call":"ignored"}
	]`), addressing.TSI)

	require.NoError(t, err)
	assert.Equal(t, 2, merged)
	assert.Equal(t, "DL1ABC", existing.Call)
	assert.Equal(t, "Anna", existing.Name)
	assert.Equal(t, Icon{Sym: '/', Tab: 'e'}, existing.Icon)
	assert.Equal(t, lastActivity, existing.LastActivity)
	assert.Equal(t, 51.5, existing.Latitude)

	added, ok := directory.Lookup("09011638300023405")
	require.True(t, ok)
	assert.Equal(t, Icon{Sym: '\\', Tab: 'r'}, added.Icon)
	assert.Equal(t, 2, directory.Len())
}

func TestDirectory_MergeNormalizesTSI(t *testing.T) {
	directory := New(DefaultIcon)
	existing := directory.Add(User{TSI: "09011638300023404", Call: "NoCall"})

	merged, err := directory.Merge([]byte(`[
		{"tsi":"0901163830023404","call":"DL1ABC","name":"Anna","tab":101,"sym":47},
		{"tsi":"23405","call":"DL2XYZ","name":"Bert","tab":101,"sym":47}
	]`), addressing.TSI)

	require.NoError(t, err)
	assert.Equal(t, 2, merged)
	assert.Equal(t, 2, directory.Len())
	assert.Equal(t, "DL1ABC", existing.Call)
	assert.Equal(t, "DL2XYZ", directory.Call("09011638300023405"))
}

func TestDirectory_MergeInvalid(t *testing.T) {
	tt := []struct {
		desc  string
		value string
	}{
		{"no json", "hello"},
		{"no array", `{"tsi":"1"}`},
		{"long icon", `[{"tsi":"1","sym":"ab"}]`},
		{"icon out of range", `[{"tsi":"1","tab":300}]`},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			directory := New(DefaultIcon)
			_, err := directory.Merge([]byte(tc.value), addressing.TSI)
			assert.Error(t, err)
			assert.Equal(t, 0, directory.Len())
		})
	}
}
