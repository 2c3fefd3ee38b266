package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Forms(t *testing.T) {
	cases := map[string]string{
		"https://youtube.com/@FooBar":        "@foobar",
		"https://youtube.com/@FooBar/":       "@foobar",
		"https://youtube.com/channel/UC123":  "channel/UC123",
		"https://youtube.com/c/SomeName":     "c/somename",
		"SomeBareHandle":                     "@somebarehandle",
		"@AlreadyHandle":                     "@alreadyhandle",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeChannelURL(in), "input=%s", in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://youtube.com/@FooBar/",
		"https://youtube.com/channel/UC123/",
		"https://youtube.com/c/SomeName",
		"Bare Name",
		"https://youtube.com/watch?v=abc123",
	}
	for _, in := range inputs {
		once := NormalizeChannelURL(in)
		twice := NormalizeChannelURL(once)
		assert.Equal(t, once, twice, "not idempotent for %q", in)
	}
}

func TestCache_SaveFindRoundTrip(t *testing.T) {
	c := New(t.TempDir())
	report := Report{ChannelConcept: "A cooking channel about quick weeknight dinners for busy parents"}

	key, err := c.Save([]string{"https://youtube.com/@foo"}, report)
	require.NoError(t, err)
	assert.Len(t, key, 16)

	found, err := c.Find("https://youtube.com/@foo")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, report.ChannelConcept, found.Report.ChannelConcept)
}

func TestCache_DeleteThenFindIsMiss(t *testing.T) {
	c := New(t.TempDir())
	_, err := c.Save([]string{"https://youtube.com/@foo"}, Report{})
	require.NoError(t, err)

	ok, err := c.Delete("https://youtube.com/@foo")
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := c.Find("https://youtube.com/@foo")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCache_MissingURLIsMissNotError(t *testing.T) {
	c := New(t.TempDir())
	found, err := c.Find("https://youtube.com/@never-saved")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCacheKey_StableUnderURLOrder(t *testing.T) {
	a := CacheKey([]string{"https://youtube.com/@foo", "https://youtube.com/@bar"})
	b := CacheKey([]string{"https://youtube.com/@bar", "https://youtube.com/@foo"})
	assert.Equal(t, a, b)
}

func TestWantsReanalyze(t *testing.T) {
	assert.True(t, WantsReanalyze("다시 분석 해줘"))
	assert.True(t, WantsReanalyze("업데이트 해주세요"))
	assert.False(t, WantsReanalyze("확인"))
}

func TestSummary_FormatsChannelsAndExcerpt(t *testing.T) {
	entry := &CacheEntry{
		NormalizedURLs: []string{"@foo", "@bar"},
		CreatedAt:      "2026-01-15T10:30:00Z",
		Report:         Report{ChannelConcept: "a very long concept description that exceeds one hundred characters in total length for sure"},
	}
	s := Summary(entry)
	assert.Contains(t, s, "foo, bar")
	assert.Contains(t, s, "컨셉:")
}
