package mcpserver

// selectionSummary is the agent-facing view of the current selection.
type selectionSummary struct {
	Key           string `json:"key"`
	Kind          string `json:"kind"`
	ComponentType string `json:"componentType,omitempty"`
	PageID        string `json:"pageId,omitempty"`
	ElementID     string `json:"elementId,omitempty"`
	Draft         string `json:"draft"`
}
