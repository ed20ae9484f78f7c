package api

import (
	"image/color"
	"net/http"

	"github.com/fogleman/gg"
)

const (
	heatmapCellPx    = 16
	heatmapMaxWidth  = 2048
	heatmapMaxHeight = 2048
)

// handleHeatmap renders cell occupancy as a PNG. Cell brightness scales
// with its item count relative to the fullest cell.
func (h *routerHandlers) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	occ := h.index.Occupancy()

	if occ.Rows == 0 || occ.Cols == 0 {
		writeError(w, "Index has no cells", http.StatusNotFound)
		return
	}

	cellPx := heatmapCellPx
	for cellPx > 1 && (occ.Cols*cellPx > heatmapMaxWidth || occ.Rows*cellPx > heatmapMaxHeight) {
		cellPx /= 2
	}

	width := occ.Cols * cellPx
	height := occ.Rows * cellPx

	maxCount := 0
	for _, c := range occ.Counts {
		if c > maxCount {
			maxCount = c
		}
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.RGBA{12, 12, 28, 255})
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	for row := 0; row < occ.Rows; row++ {
		for col := 0; col < occ.Cols; col++ {
			count := occ.Counts[row*occ.Cols+col]
			if count == 0 {
				continue
			}
			dc.SetColor(heatColor(count, maxCount))
			dc.DrawRectangle(float64(col*cellPx), float64(row*cellPx), float64(cellPx), float64(cellPx))
			dc.Fill()
		}
	}

	// Cell borders
	if cellPx >= 4 {
		dc.SetColor(color.RGBA{30, 30, 45, 255})
		dc.SetLineWidth(1)
		for x := 0.0; x <= float64(width); x += float64(cellPx) {
			dc.DrawLine(x, 0, x, float64(height))
			dc.Stroke()
		}
		for y := 0.0; y <= float64(height); y += float64(cellPx) {
			dc.DrawLine(0, y, float64(width), y)
			dc.Stroke()
		}
	}

	w.Header().Set("Content-Type", "image/png")
	if err := dc.EncodePNG(w); err != nil {
		// Headers already sent, nothing sensible to report to the client
		return
	}
}

// heatColor maps a cell count to a blue-to-red ramp.
func heatColor(count, maxCount int) color.RGBA {
	t := float64(count) / float64(maxCount)
	if t > 1 {
		t = 1
	}

	// Blue at low occupancy, red at high, through purple
	r := uint8(40 + t*215)
	g := uint8(30 * (1 - t))
	b := uint8(200 * (1 - t))
	return color.RGBA{r, g, b, 255}
}
