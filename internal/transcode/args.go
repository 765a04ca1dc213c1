package transcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const audioFadeMax = 2.0

// BuildArgs renders p as an ffmpeg command line. Progress is written to
// stdout in key=value form.
func BuildArgs(p Plan) []string {
	d := secs(p.SecondsPerImage)
	args := []string{"-hide_banner", "-y", "-nostdin"}

	for _, photo := range p.Photos {
		args = append(args, "-loop", "1", "-t", d, "-i", photo)
	}
	if p.Audio != "" {
		args = append(args, "-stream_loop", "-1", "-i", p.Audio)
	}

	args = append(args, "-filter_complex", filterGraph(p))
	args = append(args, "-map", "[vout]")
	if p.Audio != "" {
		args = append(args, "-map", "[aout]", "-c:a", "aac", "-b:a", "128k")
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", strconv.Itoa(p.CRF),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(p.FPS),
		"-movflags", "+faststart",
		"-t", secs(p.Duration()),
		"-progress", "pipe:1",
		"-nostats",
		p.Output,
	)
	return args
}

func filterGraph(p Plan) string {
	n := len(p.Photos)
	var parts []string

	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,fps=%d,format=yuv420p[v%d]",
			i, p.Width, p.Height, p.Width, p.Height, p.FPS, i,
		))
	}

	switch {
	case n == 1:
		parts = append(parts, "[v0]null[vout]")
	case p.TransitionSeconds <= 0:
		var in strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&in, "[v%d]", i)
		}
		parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vout]", in.String(), n))
	default:
		prev := "v0"
		step := p.SecondsPerImage - p.TransitionSeconds
		for k := 1; k < n; k++ {
			out := fmt.Sprintf("x%d", k)
			if k == n-1 {
				out = "vout"
			}
			parts = append(parts, fmt.Sprintf("[%s][v%d]xfade=transition=%s:duration=%s:offset=%s[%s]",
				prev, k, transitionAt(p.Transitions, k-1), secs(p.TransitionSeconds), secs(float64(k)*step), out))
			prev = out
		}
	}

	if p.Audio != "" {
		total := p.Duration()
		fade := math.Min(audioFadeMax, total/4)
		parts = append(parts, fmt.Sprintf("[%d:a]afade=t=out:st=%s:d=%s[aout]", n, secs(total-fade), secs(fade)))
	}

	return strings.Join(parts, ";")
}

func transitionAt(ts []string, i int) string {
	if i < len(ts) && ts[i] != "" {
		return ts[i]
	}
	return "fade"
}

func secs(f float64) string {
	return strconv.FormatFloat(math.Round(f*1000)/1000, 'f', -1, 64)
}
