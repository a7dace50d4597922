package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// Indonesian plates: 1-2 area letters, 1-4 digits, up to 3 suffix letters.
var plateRegex = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{1,4}[A-Z]{0,3}$`)

type LPRService struct {
	rekognitionClient *rekognition.Client
}

func NewLPRService(rekClient *rekognition.Client) *LPRService {
	return &LPRService{rekognitionClient: rekClient}
}

// RecognizePlate runs text detection on an image and returns the most
// confident candidate that looks like a plate number.
func (s *LPRService) RecognizePlate(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if s.rekognitionClient == nil {
		return "", 0, fmt.Errorf("rekognition client not configured")
	}

	result, err := s.rekognitionClient.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		return "", 0, fmt.Errorf("rekognition DetectText: %w", err)
	}

	var bestPlate string
	var bestConfidence float32
	for _, detection := range result.TextDetections {
		if detection.Type != types.TextTypesLine && detection.Type != types.TextTypesWord {
			continue
		}
		if detection.DetectedText == nil || detection.Confidence == nil {
			continue
		}
		candidate := strings.ToUpper(strings.ReplaceAll(*detection.DetectedText, " ", ""))
		candidate = strings.ReplaceAll(candidate, "-", "")
		if !plateRegex.MatchString(candidate) {
			continue
		}
		if *detection.Confidence > bestConfidence {
			bestConfidence = *detection.Confidence
			bestPlate = candidate
		}
	}

	if bestPlate == "" {
		return "", 0, fmt.Errorf("no plate-like text found in image (%d detections)", len(result.TextDetections))
	}
	log.Printf("LPRService: plate '%s' recognized with confidence %.2f", bestPlate, bestConfidence)
	return bestPlate, bestConfidence, nil
}
