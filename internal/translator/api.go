package translator

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errMissingWords = errors.New("aslWords is required and must be a list of strings")

// GenerateRequest models the POST /generate payload.
type GenerateRequest struct {
	ASLWords []string
}

// UnmarshalJSON implements custom parsing so a missing or null aslWords is
// rejected instead of being read as an empty list.
func (r *GenerateRequest) UnmarshalJSON(data []byte) error {
	var alias struct {
		ASLWords json.RawMessage `json:"aslWords"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	if len(alias.ASLWords) == 0 || string(alias.ASLWords) == "null" {
		return errMissingWords
	}

	var words []string
	if err := json.Unmarshal(alias.ASLWords, &words); err != nil {
		return fmt.Errorf("%w: %v", errMissingWords, err)
	}

	r.ASLWords = words
	return nil
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	ASL      string `json:"asl"`
	Sentence string `json:"sentence"`
}
