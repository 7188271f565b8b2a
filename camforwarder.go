package main

import (
	"io"
	"net/http"
	"time"

	"github.com/tomasclt/casa-inteligente-multimodal/state"
	. "github.com/tomasclt/casa-inteligente-multimodal/util"
)

var queue chan CamForwarderCamera
var cam_forwarder CamForwarder
var ticker *time.Ticker

// CamForwarder polls camera snapshot URLs on a fixed period and runs each
// frame through the gesture classifier. Resulting gestures land on the
// shared kiosk session, so a wall-mounted camera can drive the house
// without a browser.
type CamForwarder struct {
	Enabled   bool                 `mapstructure:"enabled"`
	Cameras   []CamForwarderCamera `mapstructure:"cameras"`
	Frequency int64                `mapstructure:"frequency"`
	Workers   int64                `mapstructure:"workers"`
}

type CamForwarderCamera struct {
	Url string `mapstructure:"snap_url"`
}

func (cf *CamForwarder) MakeCamForwarder() {
	err := Config.UnmarshalKey("cam_forwarder", cf)
	if err != nil {
		Logger.Error().Msgf("Error loading cam_forwarder config: %v", err)
	}
	if cf.Workers < 1 {
		cf.Workers = 1
	}
	if queue == nil {
		queue = make(chan CamForwarderCamera, cf.Workers*4)
	}
	for i := 0; i < int(cf.Workers); i++ {
		go cam_worker(queue)
	}
}

func (cf *CamForwarder) Start() {
	if !cf.Enabled || len(cf.Cameras) == 0 {
		Logger.Debug().Msg("cam forwarder disabled")
		return
	}
	if cf.Frequency < 1 {
		cf.Frequency = 5
	}
	ticker = time.NewTicker(time.Duration(cf.Frequency) * time.Second)
	go func() {
		for {
			<-ticker.C
			for _, c := range cf.Cameras {
				queue <- c
			}
		}
	}()
}

func cam_worker(jobs <-chan CamForwarderCamera) {
	for job := range jobs {
		process_snapshot(job)
	}
}

func process_snapshot(job CamForwarderCamera) {
	req, err := http.NewRequest("GET", job.Url, nil)
	if err != nil {
		Logger.Error().Msgf("Error building camera request: %v", err)
		return
	}
	req.Header.Set("Accept", "*/*")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		Logger.Warn().Msgf("Error fetching camera snapshot: %v", err)
		return
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			Logger.Warn().Msgf("Error closing camera response: %v", closeErr)
		}
	}()
	if resp.StatusCode > 299 || resp.StatusCode < 200 {
		Logger.Warn().Msgf("non-2xx code received from camera: %d", resp.StatusCode)
		return
	}
	if resp.Header.Get("Content-Type") != "image/jpeg" {
		Logger.Warn().Msgf("Invalid image mimetype for %v: %v", job.Url, resp.Header.Get("Content-Type"))
		return
	}
	img, err := io.ReadAll(resp.Body)
	if err != nil {
		Logger.Warn().Msgf("Error reading camera snapshot: %v", err)
		return
	}

	result, err := classifier.Classify(img)
	if err != nil {
		Logger.Warn().Msgf("Error classifying camera snapshot: %v", err)
		return
	}
	classifier.CacheSnapshot(img, result)
	if float64(result.Confidence) < Config.GetFloat64("gesture_min_confidence") {
		Logger.Debug().Msgf("gesture %s below confidence gate: %f", result.Label, result.Confidence)
		return
	}

	sessions.Mutate(KioskSession, func(house *state.House) {
		if !state.ApplyGesture(result.Label, house) {
			Logger.Debug().Msgf("unknown gesture label %s", result.Label)
			return
		}
		PublishHouseState(KioskSession, house)
	})
}
