package video

import (
	"bufio"
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	fail bool
}

func (f *fakeSource) NextFrame() (image.Image, error) {
	if f.fail {
		return nil, errors.New("camera read failed")
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.RGBA{1, 2, 3, 255})
	return img, nil
}

func TestPassthrough_StreamsMultipartFrame(t *testing.T) {
	p := NewPassthrough(&fakeSource{}, nil)
	p.frameSyncDur = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/video_feed", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Contains(t, rec.Header().Get("Content-Type"), "multipart/x-mixed-replace")

	reader := bufio.NewReader(rec.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "--frame")
}

func TestPassthrough_SyntheticFrameOnReadFailure(t *testing.T) {
	p := NewPassthrough(&fakeSource{fail: true}, nil)
	p.frameSyncDur = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/video_feed", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Greater(t, rec.Body.Len(), 0, "a synthetic frame must still be written on read failure")
}
