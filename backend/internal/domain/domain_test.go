package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProfilePatch_ApplyOnlySetFields(t *testing.T) {
	u := User{FullName: "Ada", Institution: "KAIST", ResearchField: "AI", ResearchInterests: []string{"NLP"}}
	interests := []string{"Genomics", "Bioinformatics"}

	ProfilePatch{ResearchField: strPtr("Genetics"), ResearchInterests: &interests}.Apply(&u)

	assert.Equal(t, "Ada", u.FullName)
	assert.Equal(t, "KAIST", u.Institution)
	assert.Equal(t, "Genetics", u.ResearchField)
	assert.Equal(t, []string{"Genomics", "Bioinformatics"}, u.ResearchInterests)

	interests[0] = "mutated"
	assert.Equal(t, "Genomics", u.ResearchInterests[0], "patch must not alias caller slice")
}

func TestWorkspacePatch_Apply(t *testing.T) {
	w := Workspace{Name: "Lab", IsPublic: true, MemberCount: 4, OwnerID: "u1"}
	private := false

	WorkspacePatch{Name: strPtr("Lab 2"), IsPublic: &private}.Apply(&w)

	assert.Equal(t, "Lab 2", w.Name)
	assert.False(t, w.IsPublic)
	assert.Equal(t, 4, w.MemberCount)
	assert.Equal(t, "u1", w.OwnerID)
}

func TestPostPatch_EmptyPaperIDDetaches(t *testing.T) {
	p := Post{PaperID: strPtr("paper-1")}

	PostPatch{PaperID: strPtr("")}.Apply(&p)
	assert.Nil(t, p.PaperID)

	PostPatch{PaperID: strPtr("paper-2")}.Apply(&p)
	require.NotNil(t, p.PaperID)
	assert.Equal(t, "paper-2", *p.PaperID)
}

func TestCursor_RoundTripAndAdmits(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 500, time.UTC)
	c := Cursor{CreatedAt: at, ID: "p5"}

	decoded, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.Equal(at))
	assert.Equal(t, "p5", decoded.ID)

	assert.True(t, c.Admits(Post{ID: "p9", CreatedAt: at.Add(-time.Second)}))
	assert.True(t, c.Admits(Post{ID: "p4", CreatedAt: at}))
	assert.False(t, c.Admits(Post{ID: "p5", CreatedAt: at}))
	assert.False(t, c.Admits(Post{ID: "p1", CreatedAt: at.Add(time.Second)}))
}

func TestDecodeCursor_Malformed(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.Error(t, err)

	_, err = DecodeCursor("bm8tc2VwYXJhdG9y") // "no-separator"
	assert.Error(t, err)
}

func TestTarget_Flavor(t *testing.T) {
	assert.Equal(t, FlavorPost, Target{Type: TargetPost, ID: "x"}.Flavor())
	assert.Equal(t, FlavorTarget, Target{Type: TargetScrap, ID: "x"}.Flavor())
	assert.True(t, ValidTargetType(TargetGroupPaper))
	assert.False(t, ValidTargetType("workspace"))
}
