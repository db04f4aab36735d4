package model

import "time"

// ReloadResult separates what is on disk from what the engine reports
type ReloadResult struct {
	Committed    bool          `json:"committed"`
	EngineStatus string        `json:"engine_status"`
	Probed       bool          `json:"probed"`
	HTTPStatus   int           `json:"http_status,omitempty"`
	FilesTouched int           `json:"files_touched"`
	SkippedFiles []SkippedFile `json:"skipped_files,omitempty"`
	Detail       string        `json:"detail,omitempty"`
	CheckedAt    time.Time     `json:"checked_at"`
}
