package providers

import (
	"testing"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
)

func TestBedrockImageFormat(t *testing.T) {
	cases := []struct {
		mediaType string
		format    brtypes.ImageFormat
		ok        bool
	}{
		{"image/png", brtypes.ImageFormatPng, true},
		{"image/jpeg", brtypes.ImageFormatJpeg, true},
		{"image/gif", brtypes.ImageFormatGif, true},
		{"image/webp", brtypes.ImageFormatWebp, true},
		{"IMAGE/PNG", brtypes.ImageFormatPng, true},
		{"application/pdf", "", false},
		{"image/tiff", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		format, ok := bedrockImageFormat(tc.mediaType)
		assert.Equal(t, tc.ok, ok, tc.mediaType)
		assert.Equal(t, tc.format, format, tc.mediaType)
	}
}
