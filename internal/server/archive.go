package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/framelabel/internal/models"
)

// renderFrame draws a placeholder frame whose tone changes with the index.
func renderFrame(w, h, frame int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	base := color.RGBA{R: uint8(30 + frame*37%160), G: uint8(60 + frame*53%140), B: 120, A: 255}
	for y := range h {
		for x := range w {
			c := base
			if (x/32+y/32)%2 == 0 {
				c.B = 160
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// EncodeFrame writes a frame as PNG.
func EncodeFrame(out io.Writer, w, h, frame int) error {
	return png.Encode(out, renderFrame(w, h, frame))
}

func frameName(i int) string { return fmt.Sprintf("frame_%06d", i) }

// buildArchive renders the dataset of a project as a zip in the requested layout.
func buildArchive(p *project, req models.ExportRequest) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	frames := p.exportFrames(req.FrameSelection)
	classes := p.classes()

	quality := req.ImageQuality
	if quality < 1 || quality > 100 {
		quality = 80
	}

	for _, i := range frames {
		f, err := zw.Create("images/" + frameName(i) + ".jpg")
		if err != nil {
			return nil, err
		}
		if err := jpeg.Encode(f, renderFrame(p.width, p.height, i), &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}

	var err error
	switch req.Format {
	case models.FormatYOLO:
		err = writeYOLO(zw, p, frames, classes)
	case models.FormatCOCO:
		err = writeCOCO(zw, p, frames, classes)
	case models.FormatPascalVOC:
		err = writeVOC(zw, p, frames)
	default:
		err = fmt.Errorf("unsupported export format %q", req.Format)
	}
	if err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFile(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// writeYOLO writes classes.txt and one label file per frame with normalized center boxes.
func writeYOLO(zw *zip.Writer, p *project, frames []int, classes []string) error {
	if err := writeFile(zw, "classes.txt", []byte(strings.Join(classes, "\n"))); err != nil {
		return err
	}

	w, h := float64(p.width), float64(p.height)
	for _, i := range frames {
		var sb strings.Builder
		for _, a := range p.frames[i] {
			id := slices.Index(classes, a.Label())
			fmt.Fprintf(&sb, "%d %s %s %s %s\n", id,
				ftoa((a.X+a.Width/2)/w), ftoa((a.Y+a.Height/2)/h), ftoa(a.Width/w), ftoa(a.Height/h))
		}
		if err := writeFile(zw, "labels/"+frameName(i)+".txt", []byte(sb.String())); err != nil {
			return err
		}
	}
	return nil
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

type cocoImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoAnnotation struct {
	ID         int       `json:"id"`
	ImageID    int       `json:"image_id"`
	CategoryID int       `json:"category_id"`
	BBox       []float64 `json:"bbox"`
	Area       float64   `json:"area"`
	IsCrowd    int       `json:"iscrowd"`
}

type cocoCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

type cocoDataset struct {
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

// writeCOCO writes a single annotations.json with images, annotations and categories.
func writeCOCO(zw *zip.Writer, p *project, frames []int, classes []string) error {
	ds := cocoDataset{Images: []cocoImage{}, Annotations: []cocoAnnotation{}, Categories: []cocoCategory{}}
	for i, c := range classes {
		ds.Categories = append(ds.Categories, cocoCategory{ID: i, Name: c, Supercategory: "object"})
	}

	next := 1
	for _, i := range frames {
		ds.Images = append(ds.Images, cocoImage{ID: i, FileName: frameName(i) + ".jpg", Width: p.width, Height: p.height})
		for _, a := range p.frames[i] {
			ds.Annotations = append(ds.Annotations, cocoAnnotation{
				ID:         next,
				ImageID:    i,
				CategoryID: slices.Index(classes, a.Label()),
				BBox:       []float64{a.X, a.Y, a.Width, a.Height},
				Area:       a.Area(),
			})
			next++
		}
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(zw, "annotations.json", data)
}

type vocSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

type vocBox struct {
	XMin int `xml:"xmin"`
	YMin int `xml:"ymin"`
	XMax int `xml:"xmax"`
	YMax int `xml:"ymax"`
}

type vocObject struct {
	Name   string `xml:"name"`
	BndBox vocBox `xml:"bndbox"`
}

type vocAnnotation struct {
	XMLName  xml.Name    `xml:"annotation"`
	Filename string      `xml:"filename"`
	Size     vocSize     `xml:"size"`
	Objects  []vocObject `xml:"object"`
}

// writeVOC writes one Pascal VOC XML document per frame.
func writeVOC(zw *zip.Writer, p *project, frames []int) error {
	for _, i := range frames {
		doc := vocAnnotation{
			Filename: frameName(i) + ".jpg",
			Size:     vocSize{Width: p.width, Height: p.height, Depth: 3},
		}
		for _, a := range p.frames[i] {
			doc.Objects = append(doc.Objects, vocObject{
				Name: a.Label(),
				BndBox: vocBox{
					XMin: int(a.X),
					YMin: int(a.Y),
					XMax: int(a.X + a.Width),
					YMax: int(a.Y + a.Height),
				},
			})
		}

		data, err := xml.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		if err := writeFile(zw, "annotations/"+frameName(i)+".xml", append([]byte(xml.Header), data...)); err != nil {
			return err
		}
	}
	return nil
}
