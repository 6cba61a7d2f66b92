package render

import _ "embed"

// PipelineSource is the source of pipeline.go, shown as page decoration.
//
//go:embed pipeline.go
var PipelineSource string
