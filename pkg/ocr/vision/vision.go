// Package vision recognizes receipt text with Google Cloud Vision document
// text detection.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"log/slog"
	"net/http"

	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"github.com/ArionMiles/smartspend/pkg/imaging"
	"github.com/ArionMiles/smartspend/pkg/ocr"
)

// Scope is the OAuth scope the HTTP client must carry.
const Scope = visionapi.CloudVisionScope

const featureDocumentText = "DOCUMENT_TEXT_DETECTION"

// Recognizer calls images:annotate for every image.
type Recognizer struct {
	srv    *visionapi.Service
	logger *slog.Logger
}

// New creates a Recognizer. Extra options are passed to the API client,
// which tests use to point it at a fake endpoint.
func New(ctx context.Context, httpClient *http.Client, logger *slog.Logger, opts ...option.ClientOption) (*Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := visionapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create vision service: %w", err)
	}
	return &Recognizer{srv: srv, logger: logger.With("component", "vision")}, nil
}

// Recognize implements api.Recognizer. Vision has no character whitelist so
// it is applied to the returned text instead.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, whitelist string) (string, error) {
	var buf bytes.Buffer
	if err := imaging.EncodePNG(&buf, img); err != nil {
		return "", err
	}

	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image:    &visionapi.Image{Content: base64.StdEncoding.EncodeToString(buf.Bytes())},
			Features: []*visionapi.Feature{{Type: featureDocumentText}},
		}},
	}

	resp, err := r.srv.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("annotating image: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	res := resp.Responses[0]
	if res.Error != nil && res.Error.Message != "" {
		return "", fmt.Errorf("vision: %s", res.Error.Message)
	}
	if res.FullTextAnnotation == nil {
		r.logger.Debug("no text detected")
		return "", nil
	}

	return ocr.ApplyWhitelist(res.FullTextAnnotation.Text, whitelist), nil
}
