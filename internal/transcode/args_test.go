package transcode

import (
	"strings"
	"testing"
)

func basePlan() Plan {
	return Plan{
		Photos:            []string{"p0.jpg", "p1.jpg", "p2.jpg"},
		Output:            "out.mp4",
		Width:             1280,
		Height:            720,
		FPS:               30,
		CRF:               26,
		SecondsPerImage:   3,
		TransitionSeconds: 1,
		Transitions:       []string{"fade", "wipeleft"},
	}
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestBuildArgsInputs(t *testing.T) {
	args := BuildArgs(basePlan())
	joined := strings.Join(args, " ")

	if n := strings.Count(joined, "-loop 1 -t 3 -i"); n != 3 {
		t.Errorf("expected 3 looped photo inputs, got %d in %s", n, joined)
	}
	if argValue(args, "-t") != "3" {
		t.Errorf("first -t should be the per-photo duration")
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("output must be last, got %s", args[len(args)-1])
	}
	if !strings.Contains(joined, "-progress pipe:1") {
		t.Error("progress must go to stdout")
	}
	if !strings.Contains(joined, "-t 7 -progress") {
		t.Errorf("total duration should be 7s: %s", joined)
	}
	if argValue(args, "-crf") != "26" || argValue(args, "-pix_fmt") != "yuv420p" {
		t.Error("encoder settings missing")
	}
	if strings.Contains(joined, "[aout]") {
		t.Error("no audio map expected without audio")
	}
}

func TestBuildArgsXfadeChain(t *testing.T) {
	graph := argValue(BuildArgs(basePlan()), "-filter_complex")

	for _, want := range []string{
		"[0:v]scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720",
		"[v0][v1]xfade=transition=fade:duration=1:offset=2[x1]",
		"[x1][v2]xfade=transition=wipeleft:duration=1:offset=4[vout]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("filter graph missing %q:\n%s", want, graph)
		}
	}
}

func TestBuildArgsAudio(t *testing.T) {
	p := basePlan()
	p.Audio = "music.mp3"
	args := BuildArgs(p)
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-stream_loop -1 -i music.mp3") {
		t.Errorf("audio input missing: %s", joined)
	}
	graph := argValue(args, "-filter_complex")
	if !strings.Contains(graph, "[3:a]afade=t=out:st=5.25:d=1.75[aout]") {
		t.Errorf("unexpected audio fade:\n%s", graph)
	}
	if !strings.Contains(joined, "-map [aout]") {
		t.Error("audio not mapped")
	}
}

func TestBuildArgsWithoutTransitions(t *testing.T) {
	p := basePlan()
	p.TransitionSeconds = 0
	graph := argValue(BuildArgs(p), "-filter_complex")
	if !strings.Contains(graph, "[v0][v1][v2]concat=n=3:v=1:a=0[vout]") {
		t.Errorf("expected concat without transitions:\n%s", graph)
	}
}
