package launch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workspace-engine/workspace-engine/pkg/model"
)

func TestRescale_IndependentXYScale(t *testing.T) {
	cases := []struct {
		name string
		base model.Rect
		src  model.Rect
		dst  model.Rect
		want model.Rect
	}{
		{
			name: "monitor replaced by a smaller one at origin, uniform half scale",
			base: model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080},
			src:  model.Rect{Left: 0, Top: 0, Width: 3840, Height: 2160},
			dst:  model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080},
			want: model.Rect{Left: 0, Top: 0, Width: 960, Height: 540},
		},
		{
			name: "identical monitor rects are a no-op",
			base: model.Rect{Left: 100, Top: 200, Width: 640, Height: 480},
			src:  model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080},
			dst:  model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080},
			want: model.Rect{Left: 100, Top: 200, Width: 640, Height: 480},
		},
		{
			name: "destination monitor offset and scaled independently per axis",
			base: model.Rect{Left: 100, Top: 100, Width: 400, Height: 300},
			src:  model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080},
			dst:  model.Rect{Left: 1920, Top: 0, Width: 2560, Height: 2160},
			want: model.Rect{Left: 1920 + 133, Top: 200, Width: 533, Height: 600},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := rescale(c.base, c.src, c.dst)
			require.Equal(t, c.want, got)
		})
	}
}

func TestRescale_EmptyMonitorRectIsNoop(t *testing.T) {
	base := model.Rect{Left: 10, Top: 20, Width: 300, Height: 200}
	got := rescale(base, model.Rect{}, model.Rect{Left: 0, Top: 0, Width: 1920, Height: 1080})
	require.Equal(t, base, got)
}
