package mix

import (
	"strings"
	"testing"
)

func TestFilterGraph(t *testing.T) {
	tl := mustTimeline(t, 60, defaultSettings())
	graph := tl.FilterGraph()

	chains := strings.Split(graph, ";")
	if len(chains) != 3 {
		t.Fatalf("chains = %d in %q", len(chains), graph)
	}
	if !strings.HasPrefix(chains[0], "[1:a]atrim=0:70,asetpts=PTS-STARTPTS,volume='") {
		t.Fatalf("bgm chain = %q", chains[0])
	}
	if !strings.HasSuffix(chains[0], ":eval=frame[bgm]") {
		t.Fatalf("bgm chain = %q", chains[0])
	}
	if chains[1] != "[0:a]adelay=7000:all=1[nar]" {
		t.Fatalf("narration chain = %q", chains[1])
	}
	if chains[2] != "[bgm][nar]amix=inputs=2:duration=first:normalize=0[mixed]" {
		t.Fatalf("mix chain = %q", chains[2])
	}
}

func TestFilterGraphEmbedsEnvelope(t *testing.T) {
	tl := mustTimeline(t, 10, Settings{BGMVolume: 0.4})
	graph := tl.FilterGraph()
	if !strings.Contains(graph, "volume='if(lt(t,10),0.4,0)':eval=frame") {
		t.Fatalf("graph = %q", graph)
	}
	if !strings.Contains(graph, "adelay=0:all=1") {
		t.Fatalf("graph = %q", graph)
	}
}
