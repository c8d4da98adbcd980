package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mobile-clean/internal/model"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func desc(path string, cat model.Category, size int64, age time.Duration) model.Descriptor {
	return model.Descriptor{Path: path, Name: path, Category: cat, Size: size, Timestamp: now.Add(-age)}
}

func paths(files []model.Descriptor) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestApply(t *testing.T) {
	files := []model.Descriptor{
		desc("v", model.Video, 50*mib, 2*day),
		desc("v-old", model.Video, 600*mib, 400*day),
		desc("i", model.Image, 2*mib, time.Hour),
		desc("d", model.Docs, 5*mib, 10*day),
		desc("z", model.Zip, 5*mib+1, 100*day),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"default", Default(), []string{"v", "v-old", "i", "d", "z"}},
		{"all sentinel", Filter{All, All, All}, []string{"v", "v-old", "i", "d", "z"}},
		{"empty", Filter{}, []string{"v", "v-old", "i", "d", "z"}},
		{"video", Filter{"Video", AllSize, AllTime}, []string{"v", "v-old"}},
		{"size strict", Filter{AllTypes, ">5MB", AllTime}, []string{"v", "v-old", "z"}},
		{"week", Filter{AllTypes, AllSize, "Within 1 week"}, []string{"v", "i"}},
		{"combined", Filter{"Video", ">10MB", "Within 1 week"}, []string{"v"}},
		{"3 months", Filter{AllTypes, AllSize, "Within 3 month"}, []string{"v", "i", "d"}},
		{"unknown type passes", Filter{"Spreadsheets", AllSize, AllTime}, []string{"v", "v-old", "i", "d", "z"}},
		{"unknown size passes", Filter{AllTypes, ">3GB", AllTime}, []string{"v", "v-old", "i", "d", "z"}},
		{"nothing", Filter{"Audio", AllSize, AllTime}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paths(Apply(files, tt.filter, now)))
		})
	}
}

func TestApplyTimeBoundaryIsInclusive(t *testing.T) {
	f := Filter{AllTypes, AllSize, "Within 1 day"}
	edge := desc("edge", model.Image, 2*mib, day)
	past := desc("past", model.Image, 2*mib, day+time.Millisecond)
	assert.Equal(t, []string{"edge"}, paths(Apply([]model.Descriptor{edge, past}, f, now)))
}

func TestApplyDoesNotMutateAndIsIdempotent(t *testing.T) {
	files := []model.Descriptor{
		desc("a", model.Video, 50*mib, day),
		desc("b", model.Image, 1, day),
	}
	before := append([]model.Descriptor(nil), files...)
	f := Filter{AllTypes, ">1MB", AllTime}

	once := Apply(files, f, now)
	twice := Apply(once, f, now)

	assert.Equal(t, before, files)
	assert.Equal(t, once, twice)
}

func TestIntersect(t *testing.T) {
	a := Filter{"Video", ">5MB", "Within 1 month"}
	b := Filter{AllTypes, ">50MB", "Within 1 week"}

	got := Intersect(a, b)
	assert.Equal(t, Filter{"Video", ">50MB", "Within 1 week"}, got)
	assert.Equal(t, got, Intersect(got, b))
	assert.Equal(t, a, Intersect(a, Default()))
	assert.Equal(t, Filter{"Zip", AllSize, AllTime}, Intersect(Default(), Filter{"Zip", AllSize, AllTime}))
}

func TestIntersectMatchesSequentialApply(t *testing.T) {
	files := []model.Descriptor{
		desc("a", model.Video, 60*mib, 3*day),
		desc("b", model.Video, 6*mib, 3*day),
		desc("c", model.Video, 60*mib, 20*day),
		desc("d", model.Audio, 60*mib, 3*day),
	}
	a := Filter{"Video", ">5MB", "Within 1 month"}
	b := Filter{AllTypes, ">50MB", "Within 1 week"}

	assert.Equal(t, Apply(Apply(files, a, now), b, now), Apply(files, Intersect(a, b), now))
}

func TestIsDefault(t *testing.T) {
	assert.True(t, Default().IsDefault())
	assert.True(t, Filter{}.IsDefault())
	assert.False(t, Filter{Size: ">1MB"}.IsDefault())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, []string{AllTypes, "Image", "Video", "Audio", "Docs", "Download", "Zip"}, TypeLabels())
	assert.Equal(t, []string{AllSize, ">1MB", ">5MB", ">10MB", ">20MB", ">50MB", ">100MB", ">200MB", ">500MB"}, SizeLabels())
	assert.Equal(t, []string{AllTime, "Within 1 day", "Within 1 week", "Within 1 month", "Within 3 month", "Within 6 month"}, TimeLabels())
}

func TestSizeThresholdsAreStrict(t *testing.T) {
	tests := []struct {
		label string
		bytes int64
	}{
		{">1MB", 1048576},
		{">5MB", 5242880},
		{">10MB", 10485760},
		{">20MB", 20971520},
		{">50MB", 52428800},
		{">100MB", 104857600},
		{">200MB", 209715200},
		{">500MB", 524288000},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.bytes, SizeThreshold(tt.label))
			f := Filter{AllTypes, tt.label, AllTime}
			assert.False(t, f.Matches(desc("at", model.Video, tt.bytes, 0), now))
			assert.True(t, f.Matches(desc("over", model.Video, tt.bytes+1, 0), now))
		})
	}
}

func TestTimeWindows(t *testing.T) {
	tests := []struct {
		label  string
		millis int64
	}{
		{"Within 1 day", 86400000},
		{"Within 1 week", 604800000},
		{"Within 1 month", 2592000000},
		{"Within 3 month", 7776000000},
		{"Within 6 month", 15552000000},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			window := TimeWindow(tt.label)
			assert.Equal(t, tt.millis, window.Milliseconds())
			f := Filter{AllTypes, AllSize, tt.label}
			assert.True(t, f.Matches(desc("edge", model.Image, 2*mib, window), now))
			assert.False(t, f.Matches(desc("past", model.Image, 2*mib, window+time.Millisecond), now))
		})
	}
}

func TestSentinelsHaveNoLimit(t *testing.T) {
	for _, label := range []string{"", All, AllSize, AllTime, "unknown"} {
		assert.Zero(t, SizeThreshold(label), label)
		assert.Zero(t, TimeWindow(label), label)
	}
}

func TestMatches(t *testing.T) {
	f := Filter{"Image", ">1MB", AllTime}
	assert.True(t, f.Matches(desc("x", model.Image, 2*mib, 0), now))
	assert.False(t, f.Matches(desc("x", model.Image, mib, 0), now))
}
