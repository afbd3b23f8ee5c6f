package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-converter/internal/mediatypes"
)

func TestDefaultTable_Shape(t *testing.T) {
	table := DefaultTable()
	want := []Tier{TierHardware, TierSoftware, TierUniversal}

	for _, policy := range []Policy{Modern, Legacy} {
		for _, mt := range []mediatypes.MediaType{mediatypes.Video, mediatypes.Image} {
			attempts := table.Lookup(policy, mt)
			require.Len(t, attempts, 3, "%s/%s", policy, mt)

			for i, a := range attempts {
				assert.Equal(t, want[i], a.Tier, "%s/%s #%d", policy, mt, i)
				assert.Positive(t, a.Timeout, "%s/%s %s", policy, mt, a.Tier)
				assert.NotEmpty(t, a.Extension)
				if a.Tier == TierHardware {
					assert.Empty(t, a.Encoder, "hardware tiers resolve their encoder at run time")
				} else if a.Engine == EngineFFmpeg {
					assert.NotEmpty(t, a.Encoder)
				}
			}
		}
	}
}

func TestDefaultTable_Targets(t *testing.T) {
	table := DefaultTable()

	modernVideo := table.Lookup(Modern, mediatypes.Video)
	assert.Equal(t, CodecAV1, modernVideo[0].Codec)
	assert.Equal(t, "libsvtav1", modernVideo[1].Encoder)
	assert.Equal(t, "libx264", modernVideo[2].Encoder)

	legacyVideo := table.Lookup(Legacy, mediatypes.Video)
	assert.Equal(t, CodecHEVC, legacyVideo[0].Codec)
	assert.Equal(t, "libx265", legacyVideo[1].Encoder)
	assert.Equal(t, "hvc1", legacyVideo[1].Tag)

	modernImage := table.Lookup(Modern, mediatypes.Image)
	assert.Equal(t, ".avif", modernImage[0].Extension)
	assert.Equal(t, "libaom-av1", modernImage[1].Encoder)
	assert.Equal(t, EngineStill, modernImage[2].Engine)
	assert.Equal(t, ".jpg", modernImage[2].Extension)

	legacyImage := table.Lookup(Legacy, mediatypes.Image)
	for _, a := range legacyImage {
		assert.Equal(t, ".jpg", a.Extension)
		assert.Equal(t, 3072, a.MaxDimension)
	}
}

func TestTableLookup_ReturnsCopy(t *testing.T) {
	table := DefaultTable()

	attempts := table.Lookup(Modern, mediatypes.Video)
	attempts[0].Encoder = "mutated"

	assert.Empty(t, table.Lookup(Modern, mediatypes.Video)[0].Encoder)
}

func TestTableLookup_Missing(t *testing.T) {
	table := Table{Modern: {mediatypes.Video: {{Tier: TierSoftware}}}}

	assert.Nil(t, table.Lookup(Legacy, mediatypes.Video))
	assert.Nil(t, table.Lookup(Modern, mediatypes.Image))
}
