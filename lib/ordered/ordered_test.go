package ordered

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetKeepsFirstPosition(t *testing.T) {
	var m Map
	m.Set("b", "1")
	m.Set("a", "2")
	m.Set("b", "3")

	require.Equal(t, []string{"b", "a"}, m.Keys())
	require.Equal(t, "3", m.Value("b"))

	m.Delete("b")
	require.Equal(t, []string{"a"}, m.Keys())
	require.False(t, m.Has("b"))

	m.Delete("missing")
	require.Equal(t, 1, m.Len())
}

func TestDecodePreservesOrder(t *testing.T) {
	var m Map
	err := json.Unmarshal([]byte(`{"z": "last", "a": 1.50, "m": null, "t": true, "o": {"x": [1, 2]}}`), &m)
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, []Pair{
		{Key: "z", Value: "last"},
		{Key: "a", Value: "1.50"},
		{Key: "m", Value: ""},
		{Key: "t", Value: "true"},
		{Key: "o", Value: `{"x":[1,2]}`},
	}, m.Pairs())
}

func TestDecodeNullAndInvalid(t *testing.T) {
	m, err := DecodeJSON([]byte(`null`), StringifyScalar)
	require.NoError(t, err)
	require.Equal(t, 0, m.Len())

	_, err = DecodeJSON([]byte(`[1, 2]`), StringifyScalar)
	require.Error(t, err)
}

func TestMarshalRoundTripOrder(t *testing.T) {
	m := FromPairs(Pair{"price", "10"}, Pair{"desc", `a "quoted" text`}, Pair{"lang", "en"})
	out, err := json.Marshal(m)
	require.NoError(t, err)
	require.Equal(t, `{"price":"10","desc":"a \"quoted\" text","lang":"en"}`, string(out))
}

func TestCloneIsIndependent(t *testing.T) {
	m := FromPairs(Pair{"a", "1"})
	c := m.Clone()
	c.Set("b", "2")
	c.Set("a", "changed")

	require.Equal(t, []string{"a"}, m.Keys())
	require.Equal(t, "1", m.Value("a"))
	require.Equal(t, "a:changed,b:2", c.Join(":", ","))
}
