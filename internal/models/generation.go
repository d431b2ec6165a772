package models

import (
	"bytes"
	"encoding/json"
)

// GenerationRequest carries a video processing request. Timestamps, QuestionCountsPerSegment
// and ModelsPerSegment are parallel: index i of each describes segment i.
type GenerationRequest struct {
	URL                      string   `json:"url"`
	APIKey                   string   `json:"user_api_key"`
	Timestamps               []int    `json:"timestamps"`
	QuestionCountsPerSegment []int    `json:"segment_wise_q_no"`
	ModelsPerSegment         []string `json:"segment_wise_q_model"`
}

// SegmentCount is the number of segments described by the request.
func (r *GenerationRequest) SegmentCount() int {
	return len(r.Timestamps)
}

// ParallelLengthsMatch reports whether the three per-segment sequences have the same length.
func (r *GenerationRequest) ParallelLengthsMatch() bool {
	return len(r.Timestamps) == len(r.QuestionCountsPerSegment) && len(r.Timestamps) == len(r.ModelsPerSegment)
}

// GeneratedQuestion is one question produced for a segment. Its shape is owned by the AI engine.
type GeneratedQuestion = json.RawMessage

// VideoSegment is the generated output for one segment of a video.
type VideoSegment struct {
	Start     int                 `json:"start"`
	End       int                 `json:"end"`
	Model     string              `json:"model"`
	Questions []GeneratedQuestion `json:"questions"`
}

// VideoResult is what a VideoProcessor returns. Raw keeps the processor's payload byte for byte,
// and is what gets written back to API clients so unknown fields survive.
type VideoResult struct {
	VideoURL string          `json:"video_url"`
	Segments []VideoSegment  `json:"segments"`
	Raw      json.RawMessage `json:"-"`
}

// MarshalJSON echoes Raw when present so the processor's result reaches callers unmodified
func (r VideoResult) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain VideoResult
	return json.Marshal(plain(r))
}

// UnmarshalJSON decodes the known fields and keeps a copy of the full payload in Raw.
// A payload that is not an object is kept in Raw only.
func (r *VideoResult) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		*r = VideoResult{Raw: append(json.RawMessage(nil), data...)}
		return nil
	}

	type plain VideoResult
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = VideoResult(decoded)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}
