package jobs

import "mediarelay/internal/providers/n8n"

// Stage maps a workflow node to the progress it implies once it has output.
type Stage struct {
	Node     string
	Progress int
	Label    string
}

const (
	initialProgress = 10
	initialLabel    = "Initializing..."
)

// Stages lists the media workflow nodes in pipeline order. The failure nodes
// come last so they win ties with the stage they replace. "Switch " with the
// trailing space is the real node name.
var Stages = []Stage{
	{Node: "Extract Prompts", Progress: 30, Label: "AI analyzing product..."},
	{Node: "Create Image Task", Progress: 40, Label: "Creating AI image..."},
	{Node: "Get Image", Progress: 50, Label: "Checking image status..."},
	{Node: "Switch 2", Progress: 60, Label: "Processing image..."},
	{Node: "Parse Image Result", Progress: 70, Label: "Image complete!"},
	{Node: "Create Video Task", Progress: 75, Label: "Creating AI video..."},
	{Node: "Get Video", Progress: 85, Label: "Checking video status..."},
	{Node: "Switch ", Progress: 90, Label: "Processing video..."},
	{Node: "Format Response", Progress: 95, Label: "Finalizing..."},
	{Node: "Image Failed", Progress: 65, Label: "Image generation failed, checking..."},
	{Node: "Video Failed", Progress: 90, Label: "Video generation failed, checking..."},
}

// InferStage estimates progress from which nodes have produced output. Nodes
// are checked independently and may appear in any order across retries and
// branches, so the highest progress observed wins rather than the last node
// in pipeline order.
func InferStage(run n8n.RunData) (int, string) {
	progress, label := initialProgress, initialLabel
	for _, st := range Stages {
		if run.Has(st.Node) && st.Progress >= progress {
			progress, label = st.Progress, st.Label
		}
	}
	return progress, label
}
