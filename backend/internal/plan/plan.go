package plan

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"room-editor/backend/internal/core/domain/entity"
	"room-editor/backend/internal/world"
)

const (
	pageWidth  = 297.0 // A4 альбомная, мм
	pageHeight = 210.0
	margin     = 15.0
	headerH    = 18.0
)

// Shape след объекта на полу: прямоугольник или круг
type Shape struct {
	Circle bool
	Width  float64 // ширина или диаметр
	Depth  float64
}

// Footprint вычисляет след объекта на полу с учетом масштаба
func Footprint(obj entity.ObjectView) (Shape, bool) {
	p := obj.Params
	switch obj.Geometry {
	case world.BOX.String():
		return Shape{Width: p["width"] * obj.Scale.X, Depth: p["depth"] * obj.Scale.Z}, true
	case world.SPHERE.String(), world.CONE.String():
		d := 2 * p["radius"]
		return Shape{Circle: true, Width: d * obj.Scale.X, Depth: d * obj.Scale.Z}, true
	case world.CYLINDER.String():
		d := 2 * math.Max(p["radiusTop"], p["radiusBottom"])
		return Shape{Circle: true, Width: d * obj.Scale.X, Depth: d * obj.Scale.Z}, true
	case world.GROUP.String():
		cfg := world.GetEditorConfig().Furniture
		return Shape{Width: cfg.ChairWidth * obj.Scale.X, Depth: cfg.ChairDepth * obj.Scale.Z}, true
	}
	return Shape{}, false
}

// Render рисует план комнаты сверху в PDF
func Render(w io.Writer, view *entity.SceneView, title string) error {
	room := view.Room
	if !(room.Width > 0) || !(room.Depth > 0) {
		return fmt.Errorf("план: пустая комната %+v", room)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(margin, margin, title)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(margin, margin+6, fmt.Sprintf("%.2f x %.2f x %.2f m, volume %.2f m3, furniture: %d",
		room.Width, room.Depth, room.Height, view.Volume, len(view.Furniture)))

	areaW := pageWidth - 2*margin
	areaH := pageHeight - 2*margin - headerH
	k := math.Min(areaW/room.Width, areaH/room.Depth)
	originX := margin + (areaW-room.Width*k)/2
	originY := margin + headerH + (areaH-room.Depth*k)/2

	toPage := func(x, z float64) (float64, float64) {
		return originX + (x+room.Width/2)*k, originY + (z+room.Depth/2)*k
	}

	// Пол и стены
	r, g, b := rgb(view.Materials.Floor)
	pdf.SetFillColor(r, g, b)
	pdf.SetDrawColor(40, 40, 40)
	pdf.SetLineWidth(0.8)
	pdf.Rect(originX, originY, room.Width*k, room.Depth*k, "FD")

	// Сетка с шагом 1 м
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	for x := math.Ceil(-room.Width / 2); x < room.Width/2; x++ {
		x1, y1 := toPage(x, -room.Depth/2)
		x2, y2 := toPage(x, room.Depth/2)
		pdf.Line(x1, y1, x2, y2)
	}
	for z := math.Ceil(-room.Depth / 2); z < room.Depth/2; z++ {
		x1, y1 := toPage(-room.Width/2, z)
		x2, y2 := toPage(room.Width/2, z)
		pdf.Line(x1, y1, x2, y2)
	}

	for _, asset := range view.Assets {
		if asset.Kind != world.KindDoor && asset.Kind != world.KindWindow {
			continue
		}
		drawObject(pdf, asset, toPage, k, false)
	}

	pdf.SetFont("Helvetica", "", 7)
	for _, obj := range view.Furniture {
		drawObject(pdf, obj, toPage, k, true)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("план: %w", err)
	}
	return pdf.Output(w)
}

func drawObject(pdf *gofpdf.Fpdf, obj entity.ObjectView, toPage func(x, z float64) (float64, float64), k float64, label bool) {
	shape, ok := Footprint(obj)
	if !ok {
		if obj.Kind == world.KindWindow {
			shape = Shape{Width: obj.Params["width"], Depth: 0.05}
		} else {
			return
		}
	}

	r, g, b := rgb(obj.Color)
	pdf.SetFillColor(r, g, b)
	pdf.SetDrawColor(30, 30, 30)
	pdf.SetLineWidth(0.3)

	cx, cy := toPage(obj.Position.X, obj.Position.Z)
	if shape.Circle {
		pdf.Ellipse(cx, cy, shape.Width*k/2, shape.Depth*k/2, 0, "FD")
	} else {
		pdf.Polygon(rotatedRect(obj, shape, toPage), "FD")
	}

	if label && obj.Name != "" {
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(cx+1, cy-1, obj.Name)
	}
}

// rotatedRect углы прямоугольника, повернутого вокруг вертикальной оси
func rotatedRect(obj entity.ObjectView, shape Shape, toPage func(x, z float64) (float64, float64)) []gofpdf.PointType {
	theta := obj.Rotation.Y
	cos, sin := math.Cos(theta), math.Sin(theta)
	hw, hd := shape.Width/2, shape.Depth/2

	corners := [][2]float64{{-hw, -hd}, {hw, -hd}, {hw, hd}, {-hw, hd}}
	points := make([]gofpdf.PointType, 0, len(corners))
	for _, c := range corners {
		x := obj.Position.X + c[0]*cos + c[1]*sin
		z := obj.Position.Z - c[0]*sin + c[1]*cos
		px, py := toPage(x, z)
		points = append(points, gofpdf.PointType{X: px, Y: py})
	}
	return points
}

func rgb(hex string) (int, int, int) {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
