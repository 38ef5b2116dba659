package service

import (
	"answer_eval_backend/internal/util"
	"encoding/json"
	"fmt"
	"strings"
)

type verdictEntry struct {
	TaskAnswerID string `json:"task_answer_id"`
	Correct      bool   `json:"correct"`
}

// parseVerdicts decodes the grader's reply into answer-id → verdict. Models
// often wrap the JSON in a markdown code fence, so fence markers are stripped
// unconditionally before decoding. Ids are passed through as-is; cross-checking
// them against the requesting chunk is the orchestrator's job.
func parseVerdicts(raw string) (map[string]bool, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var entries []verdictEntry
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrMalformedGraderOutput, err)
	}

	verdicts := make(map[string]bool, len(entries))
	for _, e := range entries {
		verdicts[e.TaskAnswerID] = e.Correct
	}
	return verdicts, nil
}
