package model

// Service is a backend target list. It is owned by the orchestration layer and
// only listed here.
type Service struct {
	Name       string   `json:"name"`
	Servers    []string `json:"servers"`
	SourceFile string   `json:"source_file"`
}
