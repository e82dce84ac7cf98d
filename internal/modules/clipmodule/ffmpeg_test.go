package clipmodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/clipforge/internal/database"
)

func TestAspectFiltersCoverAllRatios(t *testing.T) {
	for _, ratio := range []database.AspectRatio{
		database.AspectLandscape,
		database.AspectPortrait,
		database.AspectSquare,
	} {
		_, ok := aspectFilters[ratio]
		assert.True(t, ok, "missing filter for %s", ratio)
	}
}

func TestAspectFilterDimensions(t *testing.T) {
	assert.Contains(t, aspectFilters[database.AspectLandscape], "1920:1080")
	assert.Contains(t, aspectFilters[database.AspectPortrait], "1080:1920")
	assert.Contains(t, aspectFilters[database.AspectSquare], "1080:1080")

	// Scale to cover, then crop: output never letterboxes.
	for _, filter := range aspectFilters {
		assert.Contains(t, filter, "force_original_aspect_ratio=increase")
		assert.Contains(t, filter, "crop=")
	}
}

func TestBuildClipArgs(t *testing.T) {
	spec := ClipSpec{
		SourcePath:  "/data/uploads/in.mp4",
		OutputPath:  "/data/clips/out.mp4",
		StartTime:   12.5,
		Duration:    30,
		AspectRatio: database.AspectLandscape,
	}
	args := buildClipArgs(spec, aspectFilters[spec.AspectRatio], "/data/clips/out.mp4.part.mp4")

	assert.Equal(t, "-y", args[0], "existing partial outputs are overwritten")

	flags := map[string]string{}
	for i := 1; i < len(args)-1; i += 2 {
		flags[args[i]] = args[i+1]
	}

	assert.Equal(t, "12.500", flags["-ss"])
	assert.Equal(t, "/data/uploads/in.mp4", flags["-i"])
	assert.Equal(t, "30.000", flags["-t"])
	assert.Equal(t, "libx264", flags["-c:v"])
	assert.Equal(t, "aac", flags["-c:a"])
	assert.Equal(t, "+faststart", flags["-movflags"])
	assert.Contains(t, flags["-vf"], "1920:1080")

	assert.Equal(t, "/data/clips/out.mp4.part.mp4", args[len(args)-1], "output path is the final argument")
}

func TestBuildClipArgsSeekBeforeInput(t *testing.T) {
	spec := ClipSpec{SourcePath: "in.mp4", StartTime: 5, Duration: 10, AspectRatio: database.AspectSquare}
	args := buildClipArgs(spec, aspectFilters[spec.AspectRatio], "out.mp4")

	var ssIdx, inIdx int
	for i, arg := range args {
		switch arg {
		case "-ss":
			ssIdx = i
		case "-i":
			inIdx = i
		}
	}
	require.NotZero(t, ssIdx)
	require.NotZero(t, inIdx)
	assert.Less(t, ssIdx, inIdx, "-ss before -i uses the fast demuxer seek")
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0.000", formatSeconds(0))
	assert.Equal(t, "61.250", formatSeconds(61.25))
	assert.Equal(t, "0.333", formatSeconds(1.0/3.0))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("  short ", 10))
	assert.Equal(t, "cdef", tail("abcdef", 4))
}
