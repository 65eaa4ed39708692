package textextract

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// maxPDFBytes is the Vision API limit for synchronous file annotation.
const maxPDFBytes = 20 * 1024 * 1024

// VisionExtractor implements Extractor using Google Cloud Vision
// document text detection. PDFs are sent inline, so no intermediate
// bucket upload is needed.
type VisionExtractor struct {
	client *vision.ImageAnnotatorClient
}

func NewVisionExtractor(ctx context.Context, opts ...option.ClientOption) (*VisionExtractor, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &VisionExtractor{client: client}, nil
}

func (v *VisionExtractor) ExtractText(ctx context.Context, pdf []byte) (string, error) {
	if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
		return "", ErrInvalidPDF
	}
	if len(pdf) > maxPDFBytes {
		return "", ErrPDFTooLarge
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdf,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Responses) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, fileResp.Error.Message)
	}

	var sb strings.Builder
	for _, page := range fileResp.Responses {
		if page.FullTextAnnotation == nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(page.FullTextAnnotation.Text)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// Close releases the underlying client.
func (v *VisionExtractor) Close() error {
	return v.client.Close()
}
