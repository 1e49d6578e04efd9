package person

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestName_DisplayName(t *testing.T) {
	n := Name{First: "Ada", Middle: "King", Last: "Lovelace"}
	assert.Equal(t, "Ada King Lovelace", n.DisplayName())

	n.Nicknames = []Nickname{{Value: "Countess"}, {Value: "Ada L.", Selected: true}}
	assert.Equal(t, "Ada L.", n.DisplayName())

	assert.Equal(t, "Ada", Name{First: "Ada"}.DisplayName())
}

func TestDate_String(t *testing.T) {
	assert.Equal(t, "1815-12-10", Date{Day: intp(10), Month: intp(12), Year: intp(1815)}.String())
	assert.Equal(t, "1815-??-??", Date{Year: intp(1815)}.String())
	assert.Equal(t, "????-??-??", Date{}.String())
}

func TestMaxSpousesFor(t *testing.T) {
	assert.Equal(t, 4, MaxSpousesFor(GenderMale))
	assert.Equal(t, 1, MaxSpousesFor(GenderFemale))
	assert.Equal(t, 1, MaxSpousesFor(""))
}

func TestEdgeType_ValidFor(t *testing.T) {
	tests := []struct {
		typ  EdgeType
		kind Kind
		want bool
	}{
		{EdgeBlood, KindParents, true},
		{EdgeAdopted, KindChildren, true},
		{EdgeMarried, KindChildren, false},
		{EdgeMarried, KindSpouses, true},
		{EdgeDivorced, KindSpouses, true},
		{EdgeBlood, KindSpouses, false},
		{EdgeBlood, KindSiblings, true},
		{EdgeAdopted, KindSiblings, false},
	}
	for _, tt := range tests {
		if got := tt.typ.ValidFor(tt.kind); got != tt.want {
			t.Errorf("%s.ValidFor(%s) = %v, want %v", tt.typ, tt.kind, got, tt.want)
		}
	}
}

func TestKind_Reverse(t *testing.T) {
	assert.Equal(t, KindChildren, KindParents.Reverse())
	assert.Equal(t, KindParents, KindChildren.Reverse())
	assert.Equal(t, KindSpouses, KindSpouses.Reverse())
	assert.Equal(t, KindSiblings, KindSiblings.Reverse())
}

func TestPerson_CloneIsIndependent(t *testing.T) {
	p := &Person{
		ID:      "a",
		Name:    Name{First: "A", Nicknames: []Nickname{{Value: "x"}}},
		Birth:   &Event{Date: &Date{Year: intp(1900)}, Place: &Place{City: "Oslo"}},
		Parents: []Edge{{ID: "p1", Type: EdgeBlood}},
		Counts:  &Counts{Parents: 2},
	}

	c := p.Clone()
	c.Parents[0].ID = "changed"
	c.Name.Nicknames[0].Value = "y"
	*c.Birth.Date.Year = 2000
	c.Birth.Place.City = "Bergen"
	c.Counts.Parents = 5

	assert.Equal(t, "p1", p.Parents[0].ID)
	assert.Equal(t, "x", p.Name.Nicknames[0].Value)
	assert.Equal(t, 1900, *p.Birth.Date.Year)
	assert.Equal(t, "Oslo", p.Birth.Place.City)
	assert.Equal(t, 2, p.Counts.Parents)

	// nil relation lists become empty lists so the wire shape stays stable
	assert.NotNil(t, c.Children)
	assert.Len(t, c.Children, 0)
}

func TestPerson_RemoveEdgesTo(t *testing.T) {
	p := &Person{
		ID:       "a",
		Parents:  []Edge{{ID: "x", Type: EdgeBlood}, {ID: "y", Type: EdgeBlood}},
		Siblings: []Edge{{ID: "x", Type: EdgeBlood}},
	}

	assert.True(t, p.RemoveEdgesTo("x"))
	assert.Equal(t, []Edge{{ID: "y", Type: EdgeBlood}}, p.Parents)
	assert.Empty(t, p.Siblings)
	assert.False(t, p.RemoveEdgesTo("x"))
}

func TestPerson_MarriedSpouses(t *testing.T) {
	p := &Person{Spouses: []Edge{{ID: "s1", Type: EdgeMarried}, {ID: "s2", Type: EdgeDivorced}, {ID: "s3", Type: EdgeMarried}}}
	assert.Equal(t, 2, p.MarriedSpouses())
}

func TestPerson_WireShape(t *testing.T) {
	raw := `{
		"id": "n1",
		"gender": "female",
		"name": {"first": "Ingrid", "nicknames": [{"value": "Inga", "selected": true}]},
		"birth": {"date": {"year": 1921}, "place": {"country": "NO"}},
		"profileImageURL": "https://example.org/i.png",
		"parents": [{"id": "n0", "type": "blood"}],
		"children": [],
		"spouses": [{"id": "n2", "type": "married"}],
		"siblings": []
	}`

	var p Person
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "n1", p.ID)
	assert.Equal(t, GenderFemale, p.Gender)
	assert.Equal(t, "Inga", p.Name.DisplayName())
	assert.Equal(t, 1921, *p.Birth.Date.Year)
	assert.Equal(t, []Edge{{ID: "n0", Type: EdgeBlood}}, p.Relations(KindParents))
	assert.True(t, p.HasEdge(KindSpouses, "n2"))
	assert.Nil(t, p.Counts)
}

func TestExpandable_GetSet(t *testing.T) {
	var e Expandable
	assert.False(t, e.Any())
	for _, k := range Kinds {
		e.Set(k, true)
		assert.True(t, e.Get(k), "kind %s", k)
	}
	e.Set(KindSpouses, false)
	assert.False(t, e.Spouses)
	assert.True(t, e.Any())
}
