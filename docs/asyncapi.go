package docs

import _ "embed"

// AsyncAPISpec documents the room WebSocket frames.
//
//go:embed asyncapi.yaml
var AsyncAPISpec []byte
