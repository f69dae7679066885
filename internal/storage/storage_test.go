package storage

import (
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage(&multipart.FileHeader{Filename: "design.PNG", Size: 1024}))

	err := ValidateImage(&multipart.FileHeader{Filename: "design", Size: 10})
	assert.ErrorIs(t, err, ErrInvalidImage)

	err = ValidateImage(&multipart.FileHeader{Filename: "design.gif", Size: 10})
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Contains(t, err.Error(), ".gif")

	err = ValidateImage(&multipart.FileHeader{Filename: "design.jpg", Size: 6 << 20})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestValidateDataURI(t *testing.T) {
	assert.NoError(t, ValidateDataURI("data:image/png;base64,iVBORw0KGgo="))
	assert.ErrorIs(t, ValidateDataURI("https://img.test/a.png"), ErrInvalidImage)
	assert.ErrorIs(t, ValidateDataURI("data:text/plain;base64,aGk="), ErrInvalidImage)

	huge := "data:image/png;base64," + strings.Repeat("A", 8<<20)
	assert.ErrorIs(t, ValidateDataURI(huge), ErrInvalidImage)
}

func TestValidateDesignRejectsWebP(t *testing.T) {
	assert.NoError(t, ValidateImage(&multipart.FileHeader{Filename: "tee.webp", Size: 10}))
	assert.NoError(t, ValidateDesign(&multipart.FileHeader{Filename: "design.jpeg", Size: 10}))

	err := ValidateDesign(&multipart.FileHeader{Filename: "design.webp", Size: 10})
	assert.ErrorIs(t, err, ErrInvalidImage)

	assert.ErrorIs(t, ValidateDataURI("data:image/webp;base64,UklGRg=="), ErrInvalidImage)
}

func TestCheckHostedURL(t *testing.T) {
	hosts := []string{"res.cloudinary.com"}

	assert.NoError(t, CheckHostedURL("https://res.cloudinary.com/demo/image/upload/d.png", hosts))
	assert.NoError(t, CheckHostedURL("https://eu.res.cloudinary.com/d.png", hosts))
	assert.NoError(t, CheckHostedURL("https://cdn.shop.test/d.png", nil))

	rejected := []string{
		"http://res.cloudinary.com/d.png",
		"https://169.254.169.254/latest/meta-data",
		"https://res.cloudinary.com.evil.test/d.png",
		"https://user@res.cloudinary.com/d.png",
		"file:///etc/passwd",
		"/relative/d.png",
	}
	for _, raw := range rejected {
		assert.ErrorIs(t, CheckHostedURL(raw, hosts), ErrForeignImage, raw)
	}
	assert.ErrorIs(t, CheckHostedURL("http://localhost:27017", nil), ErrForeignImage)
}
