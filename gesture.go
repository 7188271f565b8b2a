package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	. "github.com/tomasclt/casa-inteligente-multimodal/util"
)

// ErrClassifierUnavailable is reported once at startup when no
// classifier_url is configured; the gesture branch is then disabled
// entirely rather than failing per call.
var ErrClassifierUnavailable = errors.New("gesture classifier unavailable")

// GestureResult is the classifier's answer for one snapshot. The
// confidence accompanies the label but the core mapper never reads it.
type GestureResult struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	Success    bool    `json:"success"`
}

type GestureSnapshot struct {
	im     []byte
	result GestureResult
	when   int64
}

// GestureClassifier talks to the remote gesture-recognition service: one
// multipart POST per snapshot, JSON result back. The model itself is a
// black box.
type GestureClassifier struct {
	mu   sync.Mutex
	last GestureSnapshot
}

var classifier *GestureClassifier

// NewGestureClassifier wires the gesture branch. A missing classifier_url
// disables it for the whole process; that is logged here and never again.
func NewGestureClassifier() *GestureClassifier {
	if Config.GetString("classifier_url") == "" {
		Logger.Warn().Msgf("gesture control disabled: %v", ErrClassifierUnavailable)
	}
	return &GestureClassifier{}
}

func (g *GestureClassifier) Enabled() bool {
	return Config.GetString("classifier_url") != ""
}

// Classify uploads one JPEG snapshot and decodes the classifier's answer.
func (g *GestureClassifier) Classify(img []byte) (GestureResult, error) {
	if !g.Enabled() {
		return GestureResult{}, ErrClassifierUnavailable
	}

	upload_body := bytes.NewBuffer(nil)
	multipartWriter := multipart.NewWriter(upload_body)
	part, err := multipartWriter.CreateFormFile("image", "snap.jpeg")
	if err != nil {
		return GestureResult{}, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(img)); err != nil {
		return GestureResult{}, fmt.Errorf("copying image into form: %w", err)
	}
	// must close or the http client doesn't set a content length
	if err := multipartWriter.Close(); err != nil {
		return GestureResult{}, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequest("POST", Config.GetString("classifier_url"), upload_body)
	if err != nil {
		return GestureResult{}, fmt.Errorf("building classifier request: %w", err)
	}
	req.Header.Set("Content-Type", multipartWriter.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return GestureResult{}, fmt.Errorf("posting to classifier: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			Logger.Warn().Msgf("Error closing classifier response: %v", closeErr)
		}
	}()
	if resp.StatusCode > 299 || resp.StatusCode < 200 {
		return GestureResult{}, fmt.Errorf("classifier returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return GestureResult{}, fmt.Errorf("reading classifier response: %w", err)
	}
	var result GestureResult
	if err := json.Unmarshal(body, &result); err != nil {
		return GestureResult{}, fmt.Errorf("unmarshaling classifier response: %w", err)
	}
	return result, nil
}

// CacheSnapshot keeps the most recent snapshot and its label for the
// annotated-image endpoint.
func (g *GestureClassifier) CacheSnapshot(img []byte, result GestureResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = GestureSnapshot{im: img, result: result, when: time.Now().Unix()}
}

func (g *GestureClassifier) LastSnapshot() GestureSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// MarkupGesture stamps the label and confidence onto the snapshot.
func MarkupGesture(imgsource image.Image, result GestureResult) image.Image {
	marked := image.NewRGBA(imgsource.Bounds())
	for x := 0; x < imgsource.Bounds().Max.X; x++ {
		for y := 0; y < imgsource.Bounds().Max.Y; y++ {
			marked.Set(x, y, imgsource.At(x, y))
		}
	}

	red := color.RGBA{255, 0, 0, 255}
	d := &font.Drawer{
		Dst:  marked,
		Src:  image.NewUniform(red),
		Face: inconsolata.Bold8x16,
		Dot:  fixed.Point26_6{X: fixed.I(5), Y: fixed.I(20)},
	}
	d.DrawString(fmt.Sprintf("%s - %.03f", result.Label, result.Confidence))

	return marked
}

// HttpGestureImage serves the last classified snapshot annotated with its
// label for the demo UI.
func HttpGestureImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(400)
		if _, err := io.WriteString(w, "Bad Request Method\n"); err != nil {
			Logger.Error().Msgf("Error writing response: %v", err)
		}
		return
	}
	if classifier == nil {
		http.Error(w, "gesture classifier unavailable", http.StatusServiceUnavailable)
		return
	}
	snap := classifier.LastSnapshot()
	if snap.im == nil {
		w.WriteHeader(404)
		if _, err := io.WriteString(w, "No snapshot yet"); err != nil {
			Logger.Error().Msgf("Error writing response: %v", err)
		}
		return
	}
	imgsource, err := jpeg.Decode(bytes.NewReader(snap.im))
	if err != nil {
		http.Error(w, "Error decoding image", http.StatusInternalServerError)
		return
	}
	marked := MarkupGesture(imgsource, snap.result)
	w.Header().Add("Content-Type", "image/jpeg")
	imgWriter := bytes.NewBuffer(nil)
	if err := jpeg.Encode(imgWriter, marked, nil); err != nil {
		http.Error(w, "Error encoding image", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(imgWriter.Bytes()); err != nil {
		Logger.Error().Msgf("Error writing image response: %v", err)
	}
}
