package invoice

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/storage"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func sampleOrder() (models.Order, map[primitive.ObjectID]models.Product) {
	tee := models.Product{ID: primitive.NewObjectID(), Name: "Black Tee"}
	hoodie := models.Product{ID: primitive.NewObjectID(), Name: "Grey Hoodie"}
	created := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

	order := models.Order{
		ID:        primitive.NewObjectID(),
		UserID:    primitive.NewObjectID(),
		Address:   "Asha, 12 MG Road, Pune 411001",
		Status:    models.OrderStatusProcessing,
		CreatedAt: created,
		Total:     1500,
		Items: []models.OrderLine{
			{ProductID: tee.ID, Name: "Black Tee", Price: 500, Quantity: 1, Variant: models.LineVariant{Size: "M", Color: "Black"}},
			{ProductID: hoodie.ID, Name: "Grey Hoodie", Price: 250, Quantity: 4, Variant: models.LineVariant{Size: "L", Color: "Grey"}},
		},
	}
	return order, map[primitive.ObjectID]models.Product{tee.ID: tee, hoodie.ID: hoodie}
}

func TestBuild_LinesReproduceOrderTotal(t *testing.T) {
	order, products := sampleOrder()

	doc := Build("Clothing Store", order, models.User{Name: "Asha", Email: "asha@example.com"}, products)

	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "Black Tee", doc.Lines[0].Name)
	assert.Equal(t, 4, doc.Lines[1].Quantity)
	assert.True(t, doc.Lines[1].Subtotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, doc.LinesTotal().Equal(doc.Total), "lines %s total %s", doc.LinesTotal(), doc.Total)
	assert.True(t, doc.ExpectedDelivery.Equal(order.CreatedAt.Add(5*24*time.Hour)))
}

func TestBuild_DeletedProductAndBadPrices(t *testing.T) {
	order, products := sampleOrder()
	delete(products, order.Items[0].ProductID)
	order.Items[1].Price = math.NaN()
	order.Items = append(order.Items, models.OrderLine{ProductID: order.Items[1].ProductID, Price: -5, Quantity: 1})

	doc := Build("Clothing Store", order, models.User{}, products)

	assert.Equal(t, DeletedProductName, doc.Lines[0].Name)
	assert.True(t, doc.Lines[1].UnitPrice.IsZero())
	assert.True(t, doc.Lines[2].UnitPrice.IsZero())
	assert.Equal(t, "Grey Hoodie", doc.Lines[2].Name)
}

func TestRender_ContainsLineItems(t *testing.T) {
	order, products := sampleOrder()
	doc := Build("Clothing Store", order, models.User{Name: "Asha"}, products)

	out, err := NewRenderer(nil).Render(context.Background(), doc)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	for _, want := range []string{"Black Tee", "Grey Hoodie", "500.00", "1000.00", "Total: INR 1500.00", FooterText} {
		assert.True(t, bytes.Contains(out, []byte(want)), "missing %q", want)
	}
	assert.False(t, bytes.Contains(out, []byte("Custom Design")))
}

func TestRender_DesignFetchFailureWritesWarning(t *testing.T) {
	order, products := sampleOrder()
	order.DesignImage = "https://img.test/design.png"
	doc := Build("Clothing Store", order, models.User{}, products)

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, order.DesignImage).Return(nil, errors.New("timeout")).Once()

	out, err := NewRenderer(fetcher).Render(context.Background(), doc)

	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte("Custom Design")))
	assert.True(t, bytes.Contains(out, []byte(DesignWarning)))
	fetcher.AssertExpectations(t)
}

func TestRender_UndecodableDesignWritesWarning(t *testing.T) {
	order, products := sampleOrder()
	order.DesignImage = "https://img.test/design.webp"
	doc := Build("Clothing Store", order, models.User{}, products)

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, order.DesignImage).Return([]byte("RIFF....WEBP"), nil).Once()

	out, err := NewRenderer(fetcher).Render(context.Background(), doc)

	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte(DesignWarning)))
}

func TestRender_EmbedsDesignImage(t *testing.T) {
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 8, 4))))

	order, products := sampleOrder()
	order.DesignImage = "https://img.test/design.png"
	doc := Build("Clothing Store", order, models.User{}, products)

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, order.DesignImage).Return(img.Bytes(), nil).Once()

	out, err := NewRenderer(fetcher).Render(context.Background(), doc)

	require.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte("/Subtype /Image")))
	assert.False(t, bytes.Contains(out, []byte(DesignWarning)))
}

// adam7PNG hand-assembles a 1x1 8-bit grayscale PNG with Adam7 interlacing,
// which image/png reads and fpdf refuses.
func adam7PNG(t *testing.T) []byte {
	t.Helper()

	var idat bytes.Buffer
	zw := zlib.NewWriter(&idat)
	_, err := zw.Write([]byte{0x00, 0x80})
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], 1)
	binary.BigEndian.PutUint32(ihdr[4:], 1)
	ihdr[8] = 8
	ihdr[12] = 1

	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")
	writeChunk := func(kind string, data []byte) {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(data)))
		out.Write(size[:])
		out.WriteString(kind)
		out.Write(data)
		crc := crc32.NewIEEE()
		crc.Write([]byte(kind))
		crc.Write(data)
		var sum [4]byte
		binary.BigEndian.PutUint32(sum[:], crc.Sum32())
		out.Write(sum[:])
	}
	writeChunk("IHDR", ihdr)
	writeChunk("IDAT", idat.Bytes())
	writeChunk("IEND", nil)
	return out.Bytes()
}

func TestRender_EmbedsDesignsFpdfCannotReadDirectly(t *testing.T) {
	var deep bytes.Buffer
	require.NoError(t, png.Encode(&deep, image.NewGray16(image.Rect(0, 0, 4, 4))))

	cases := map[string][]byte{
		"interlaced png": adam7PNG(t),
		"16-bit png":     deep.Bytes(),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			require.Equal(t, "png", format)
			require.NotZero(t, cfg.Width)

			order, products := sampleOrder()
			order.DesignImage = "https://img.test/design.png"
			doc := Build("Clothing Store", order, models.User{}, products)

			fetcher := new(MockFetcher)
			fetcher.On("Fetch", mock.Anything, order.DesignImage).Return(data, nil).Once()

			out, err := NewRenderer(fetcher).Render(context.Background(), doc)

			require.NoError(t, err)
			assert.True(t, bytes.Contains(out, []byte("/Subtype /Image")))
			assert.False(t, bytes.Contains(out, []byte(DesignWarning)))
		})
	}
}

func TestLoadDesign_RejectsOversizedImage(t *testing.T) {
	var huge bytes.Buffer
	require.NoError(t, png.Encode(&huge, image.NewGray(image.Rect(0, 0, 6000, 5000))))

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "https://img.test/huge.png").Return(huge.Bytes(), nil).Once()

	_, _, err := NewRenderer(fetcher).loadDesign(context.Background(), "https://img.test/huge.png")

	assert.ErrorContains(t, err, "too large")
}

func TestFitBox(t *testing.T) {
	w, h := fitBox(800, 400, 150, 200)
	assert.InDelta(t, 150, w, 0.001)
	assert.InDelta(t, 75, h, 0.001)

	w, h = fitBox(100, 1000, 150, 200)
	assert.InDelta(t, 20, w, 0.001)
	assert.InDelta(t, 200, h, 0.001)
}

func TestHTTPImageFetcher_RefusesForeignURLs(t *testing.T) {
	f := NewHTTPImageFetcher([]string{"res.cloudinary.com"})

	for _, raw := range []string{"http://res.cloudinary.com/a.png", "https://10.0.0.1/a.png", "https://localhost/a.png"} {
		_, err := f.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, storage.ErrForeignImage, raw)
	}
}

func TestHTTPImageFetcher_BlocksRedirectOffHost(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved.png" {
			http.Redirect(w, r, "https://localhost:1/internal", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	f := NewHTTPImageFetcher([]string{"127.0.0.1"})
	f.Client.Transport = srv.Client().Transport

	data, err := f.Fetch(context.Background(), srv.URL+"/design.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = f.Fetch(context.Background(), srv.URL+"/moved.png")
	assert.ErrorIs(t, err, storage.ErrForeignImage)
}
