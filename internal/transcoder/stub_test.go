package transcoder

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubScript stands in for ffmpeg. It prints an encoder list for
// "-encoders" and otherwise writes its last argument, failing when the
// output name contains "fail" and hanging when it contains "slow".
const stubScript = `#!/bin/sh
if [ "$2" = "-encoders" ]; then
cat <<'LIST'
Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D libx265              libx265 H.265 / HEVC
 V....D libsvtav1            SVT-AV1
 V....D libaom-av1           libaom AV1
 V....D hevc_nvenc           NVIDIA NVENC hevc encoder
 V....D h264_nvenc           NVIDIA NVENC H.264 encoder
 V....D mjpeg_vaapi          MJPEG (VAAPI)
 A....D aac                  AAC (Advanced Audio Coding)
LIST
exit 0
fi
for last; do :; done
case "$last" in
  *fail*) echo "Error while decoding stream #0:0: Invalid data found" >&2; exit 1 ;;
  *slow*) exec sleep 30 ;;
esac
echo encoded > "$last"
`

func writeStub(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub ffmpeg is a shell script")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte(stubScript), 0o755))
	return path
}
