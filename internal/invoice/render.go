package invoice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"storefront/internal/storage"
)

const (
	DesignWarning = "Design image could not be loaded."
	FooterText    = "Thanks for shopping with us!"

	maxDesignBytes  = 10 << 20
	maxDesignPixels = 25_000_000
	dateLayout      = "02 Jan 2006"
)

var columnWidths = []float64{70, 20, 25, 15, 30, 30}

type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPImageFetcher downloads design images. Only https URLs on Hosts are
// fetched, redirects included; an empty Hosts allows any https host.
type HTTPImageFetcher struct {
	Client *http.Client
	Hosts  []string
}

func NewHTTPImageFetcher(hosts []string) *HTTPImageFetcher {
	f := &HTTPImageFetcher{Hosts: hosts}
	f.Client = &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return errors.New("too many redirects")
			}
			return storage.CheckHostedURL(req.URL.String(), f.Hosts)
		},
	}
	return f
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := storage.CheckHostedURL(url, f.Hosts); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDesignBytes))
}

type Renderer struct {
	fetcher ImageFetcher
}

func NewRenderer(fetcher ImageFetcher) *Renderer {
	return &Renderer{fetcher: fetcher}
}

// Render produces the whole PDF in memory. Nothing is written to the client
// until this returns without error.
func (r *Renderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetTitle("Invoice "+doc.OrderID, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.header(pdf, tr, doc)
	r.table(pdf, tr, doc)

	if doc.DesignImageURL != "" {
		r.designPage(ctx, pdf, tr, doc.DesignImageURL)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 12, tr(FooterText), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 8, tr(doc.StoreName), "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", doc.OrderID, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write invoice %s: %w", doc.OrderID, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(doc.StoreName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "INVOICE", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	rows := [][2]string{
		{"Order ID", doc.OrderID},
		{"Order Date", formatDate(doc.OrderedAt)},
		{"Expected Delivery", formatDate(doc.ExpectedDelivery)},
		{"Status", doc.Status},
		{"Customer", strings.TrimSpace(doc.CustomerName + " " + angle(doc.CustomerEmail))},
	}
	for _, row := range rows {
		pdf.CellFormat(40, 6, row[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(40, 6, "Ship To:", "", 0, "L", false, 0, "")
	pdf.MultiCell(0, 6, tr(doc.Address), "", "L", false)
	pdf.Ln(4)
}

func (r *Renderer) table(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	headers := []string{"Product", "Size", "Color", "Qty", "Unit Price", "Subtotal"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(columnWidths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range doc.Lines {
		cells := []string{
			truncate(line.Name, 40),
			line.Size,
			line.Color,
			fmt.Sprintf("%d", line.Quantity),
			money(line.UnitPrice),
			money(line.Subtotal),
		}
		aligns := []string{"L", "C", "C", "C", "R", "R"}
		for i, text := range cells {
			pdf.CellFormat(columnWidths[i], 8, tr(text), "1", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 10, "Total: INR "+money(doc.Total), "", 1, "R", false, 0, "")
}

func (r *Renderer) designPage(ctx context.Context, pdf *fpdf.Fpdf, tr func(string) string, url string) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Custom Design", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	data, cfg, err := r.loadDesign(ctx, url)
	if err != nil {
		log.Printf("[INVOICE] [WARN] design image %s skipped: %v", url, err)
		pdf.SetFont("Helvetica", "I", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.CellFormat(0, 8, tr(DesignWarning), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		return
	}

	pdf.RegisterImageOptionsReader("design", designOptions, bytes.NewReader(data))

	w, h := fitBox(float64(cfg.Width), float64(cfg.Height), 150, 200)
	pdf.ImageOptions("design", (210-w)/2, pdf.GetY(), w, h, true, designOptions, 0, "")
}

var designOptions = fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}

// loadDesign fetches the image and flattens it to an 8-bit, non-interlaced
// PNG. fpdf errors are sticky, so the result is registered on a scratch
// document first and only handed back if fpdf accepted it.
func (r *Renderer) loadDesign(ctx context.Context, url string) ([]byte, image.Config, error) {
	if r.fetcher == nil {
		return nil, image.Config{}, errors.New("no image fetcher configured")
	}
	data, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, image.Config{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Config{}, err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, image.Config{}, errors.New("empty image")
	}
	if cfg.Width*cfg.Height > maxDesignPixels {
		return nil, image.Config{}, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, image.Config{}, err
	}
	b := src.Bounds()
	flat := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), src, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, image.Config{}, err
	}

	scratch := fpdf.New("P", "mm", "A4", "")
	scratch.RegisterImageOptionsReader("design", designOptions, bytes.NewReader(buf.Bytes()))
	if err := scratch.Error(); err != nil {
		return nil, image.Config{}, err
	}
	return buf.Bytes(), image.Config{Width: b.Dx(), Height: b.Dy()}, nil
}

func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	scale := maxW / w
	if h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func angle(email string) string {
	if email == "" {
		return ""
	}
	return "<" + email + ">"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
