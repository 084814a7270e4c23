// Package vision provides a client for the Azure AI Vision image analysis
// API. One call requests every visual feature the indexing pipeline cares
// about (caption, dense captions, objects, tags, OCR) and the heterogeneous
// response is normalised into plain structs at this boundary, so the rest
// of the system never sees the service's wire shape.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable marks every failure of the analysis backend: missing
// configuration, transport errors, or a non-success HTTP status. Callers
// use errors.Is to detect it; resilience policy lives with the caller.
var ErrUnavailable = errors.New("image analysis service unavailable")

// analysisAPIVersion is the image analysis API version query parameter.
const analysisAPIVersion = "2024-02-01"

// analysisFeatures is the comma-joined feature list requested on every call.
const analysisFeatures = "caption,denseCaptions,objects,tags,read"

// analysisTimeout bounds every outbound analysis call.
const analysisTimeout = 30 * time.Second

// BoundingBox is an axis-aligned pixel rectangle.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point is a single pixel coordinate of a bounding polygon.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DenseCaption describes one region of the image.
type DenseCaption struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// DetectedObject is one object located in the image. Name carries the
// object's highest-confidence label, or "unknown" with confidence 0 when
// the service returned an unlabelled detection.
type DetectedObject struct {
	Name        string      `json:"name"`
	Confidence  float64     `json:"confidence"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// Tag is a whole-image label.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// TextLine is one line of OCR text with its bounding polygon.
type TextLine struct {
	Text            string  `json:"text"`
	BoundingPolygon []Point `json:"bounding_polygon"`
}

// ImageAnalysis is the normalised annotation bundle for one image.
type ImageAnalysis struct {
	// Caption is the whole-image caption; empty when the service produced none.
	Caption string `json:"caption,omitempty"`
	// CaptionConfidence is the caption's confidence in [0,1].
	CaptionConfidence float64 `json:"caption_confidence,omitempty"`
	// DenseCaptions are per-region captions in service order.
	DenseCaptions []DenseCaption `json:"dense_captions"`
	// Objects are detected objects in service order.
	Objects []DetectedObject `json:"objects"`
	// Tags are whole-image labels in service order.
	Tags []Tag `json:"tags"`
	// TextLines are OCR lines flattened across all text blocks.
	TextLines []TextLine `json:"text"`
}

// Client calls the Azure AI Vision image analysis endpoint. It is safe for
// concurrent use and should be constructed once per process.
type Client struct {
	// endpoint is the Vision resource base URL, without trailing slash.
	endpoint string
	// apiKey is sent as the Ocp-Apim-Subscription-Key header.
	apiKey string
	// httpClient is the shared HTTP client with a bounded timeout.
	httpClient *http.Client
}

// Config holds the settings for constructing a Client.
type Config struct {
	// Endpoint is the Vision resource base URL.
	Endpoint string
	// APIKey is the Vision resource key.
	APIKey string
}

// New constructs a Client from the given config. Missing endpoint or key is
// a construction-time error so misconfiguration surfaces at startup.
func New(cfg *Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("vision: endpoint and API key are required: %w", ErrUnavailable)
	}
	endpoint := cfg.Endpoint
	if endpoint[len(endpoint)-1] == '/' {
		endpoint = endpoint[:len(endpoint)-1]
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: analysisTimeout},
	}, nil
}

// wire types for the analysis response. Bounding boxes arrive as {x,y,w,h}.

type wireBoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type wireTag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type analysisResponse struct {
	CaptionResult *struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"captionResult"`
	DenseCaptionsResult *struct {
		Values []struct {
			Text        string          `json:"text"`
			Confidence  float64         `json:"confidence"`
			BoundingBox wireBoundingBox `json:"boundingBox"`
		} `json:"values"`
	} `json:"denseCaptionsResult"`
	ObjectsResult *struct {
		Values []struct {
			BoundingBox wireBoundingBox `json:"boundingBox"`
			Tags        []wireTag       `json:"tags"`
		} `json:"values"`
	} `json:"objectsResult"`
	TagsResult *struct {
		Values []wireTag `json:"values"`
	} `json:"tagsResult"`
	ReadResult *struct {
		Blocks []struct {
			Lines []struct {
				Text            string  `json:"text"`
				BoundingPolygon []Point `json:"boundingPolygon"`
			} `json:"lines"`
		} `json:"blocks"`
	} `json:"readResult"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze requests every configured visual feature for the image at url and
// returns the normalised annotation bundle.
func (c *Client) Analyze(ctx context.Context, url string) (*ImageAnalysis, error) {
	payload, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return nil, fmt.Errorf("vision: marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/computervision/imageanalysis:analyze?api-version=%s&features=%s",
		c.endpoint, analysisAPIVersion, analysisFeatures)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("vision: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision: analyze request failed: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	var result analysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("vision: decode analyze response: %v: %w", err, ErrUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = fmt.Sprintf("%s (%s)", result.Error.Message, result.Error.Code)
		}
		return nil, fmt.Errorf("vision: analyze: %s: %w", msg, ErrUnavailable)
	}

	return normalise(&result), nil
}

// normalise flattens the wire response into an ImageAnalysis.
func normalise(r *analysisResponse) *ImageAnalysis {
	out := &ImageAnalysis{
		DenseCaptions: []DenseCaption{},
		Objects:       []DetectedObject{},
		Tags:          []Tag{},
		TextLines:     []TextLine{},
	}

	if r.CaptionResult != nil {
		out.Caption = r.CaptionResult.Text
		out.CaptionConfidence = r.CaptionResult.Confidence
	}

	if r.DenseCaptionsResult != nil {
		for _, dc := range r.DenseCaptionsResult.Values {
			out.DenseCaptions = append(out.DenseCaptions, DenseCaption{
				Text:        dc.Text,
				Confidence:  dc.Confidence,
				BoundingBox: toBoundingBox(dc.BoundingBox),
			})
		}
	}

	if r.ObjectsResult != nil {
		for _, obj := range r.ObjectsResult.Values {
			// The detection's name is its highest-confidence label; the
			// service returns tags ordered by confidence, so take the first.
			name, confidence := "unknown", 0.0
			if len(obj.Tags) > 0 {
				name, confidence = obj.Tags[0].Name, obj.Tags[0].Confidence
			}
			out.Objects = append(out.Objects, DetectedObject{
				Name:        name,
				Confidence:  confidence,
				BoundingBox: toBoundingBox(obj.BoundingBox),
			})
		}
	}

	if r.TagsResult != nil {
		for _, tag := range r.TagsResult.Values {
			out.Tags = append(out.Tags, Tag{Name: tag.Name, Confidence: tag.Confidence})
		}
	}

	if r.ReadResult != nil {
		for _, block := range r.ReadResult.Blocks {
			for _, line := range block.Lines {
				out.TextLines = append(out.TextLines, TextLine{
					Text:            line.Text,
					BoundingPolygon: line.BoundingPolygon,
				})
			}
		}
	}

	return out
}

// toBoundingBox converts the wire {x,y,w,h} rectangle to a BoundingBox.
func toBoundingBox(b wireBoundingBox) BoundingBox {
	return BoundingBox{X: b.X, Y: b.Y, Width: b.W, Height: b.H}
}
